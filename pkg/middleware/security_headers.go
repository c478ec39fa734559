package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets browser hardening headers on storefront responses.
// The policy admits the processor origin that serves the card form assets
// and iframe, and nothing else beyond the service itself.
type SecurityHeaders struct {
	processorOrigin string
	production      bool
}

// NewSecurityHeaders builds the middleware for the given processor origin,
// e.g. "https://api-staging.value.io".
func NewSecurityHeaders(processorOrigin string, production bool) *SecurityHeaders {
	return &SecurityHeaders{
		processorOrigin: strings.TrimRight(processorOrigin, "/"),
		production:      production,
	}
}

// Policy returns the Content-Security-Policy value.
func (sh *SecurityHeaders) Policy() string {
	origin := "'self'"
	if sh.processorOrigin != "" {
		origin += " " + sh.processorOrigin
	}

	// The card widget bootstraps with an inline script block.
	directives := []string{
		"default-src 'self'",
		"script-src " + origin + " 'unsafe-inline'",
		"style-src " + origin + " 'unsafe-inline'",
		"frame-src " + origin,
		"connect-src " + origin,
		"img-src " + origin + " data:",
		"form-action " + origin,
		"frame-ancestors 'self'",
		"base-uri 'none'",
	}
	return strings.Join(directives, "; ")
}

// Middleware wraps next with the security headers.
func (sh *SecurityHeaders) Middleware(next http.Handler) http.Handler {
	policy := sh.Policy()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", policy)
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), usb=()")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		// Local development runs over plain http.
		if sh.production {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
