package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// ClientConfig sizes the outbound pool for a single upstream host
type ClientConfig struct {
	// Timeout bounds a whole exchange, body included
	Timeout time.Duration

	IdleConns       int
	MaxConnsPerHost int
	IdleConnTimeout time.Duration

	DialTimeout           time.Duration
	KeepAlive             time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

// ProcessorClientConfig returns the pool settings for the ValueIO API.
// Every call goes to one host, so the idle pool is not split per host.
func ProcessorClientConfig(timeout time.Duration) ClientConfig {
	return ClientConfig{
		Timeout:               timeout,
		IdleConns:             32,
		MaxConnsPerHost:       64,
		IdleConnTimeout:       90 * time.Second,
		DialTimeout:           10 * time.Second,
		KeepAlive:             60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}
}

// NewHTTPClient builds a client with a dedicated transport. TLS below 1.2
// is refused.
func NewHTTPClient(cfg ClientConfig) *http.Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}

	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			MaxIdleConns:          cfg.IdleConns,
			MaxIdleConnsPerHost:   cfg.IdleConns,
			MaxConnsPerHost:       cfg.MaxConnsPerHost,
			IdleConnTimeout:       cfg.IdleConnTimeout,
			TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
			ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			ForceAttemptHTTP2:     true,
		},
	}
}
