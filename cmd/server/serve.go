package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kevin07696/valueio-gateway/internal/handlers/account"
	"github.com/kevin07696/valueio-gateway/internal/handlers/checkout"
	"github.com/kevin07696/valueio-gateway/internal/handlers/cron"
	"github.com/kevin07696/valueio-gateway/pkg/middleware"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
	"github.com/kevin07696/valueio-gateway/pkg/shutdown"
)

// gatewayHealthService is the gRPC health service name for the gateway itself
const gatewayHealthService = "valueio.Gateway"

func newServeCommand(configPath *string) *cobra.Command {
	var fixturesPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, gRPC health and metrics servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := shutdown.SignalContext(cmd.Context())
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if fixturesPath != "" {
				if err := loadFixtures(ctx, a.store, a.vaultRepo, fixturesPath); err != nil {
					return err
				}
				a.logger.Info("Fixtures loaded", zap.String("path", fixturesPath))
			}

			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&fixturesPath, "fixtures", "", "JSON file of orders, subscriptions and vaults to load at start-up")

	return cmd
}

// routes builds the storefront-facing HTTP handler
func (a *app) routes(limiter *middleware.RateLimiter, timeouts *resilience.TimeoutConfig) http.Handler {
	storefront := http.NewServeMux()
	checkout.NewHandler(a.payments, a.logger.Named("checkout"), a.cfg.Server.InternalSecret, a.cfg.Gateway.Title).RegisterRoutes(storefront)
	account.NewHandler(a.vault, a.logger.Named("account"), a.cfg.Server.InternalSecret).RegisterRoutes(storefront)

	mux := http.NewServeMux()
	cron.NewBillingHandler(a.biller, a.logger.Named("cron"), a.cfg.Cron.Secret, a.cfg.Cron.BatchSize, timeouts).RegisterRoutes(mux)
	mux.Handle("GET /healthz", a.health.HealthHandler())
	headers := middleware.NewSecurityHeaders(a.cfg.Gateway.BaseURL(), a.cfg.IsProduction())
	mux.Handle("/", middleware.Chain(storefront, limiter.Middleware, headers.Middleware, middleware.Timeout(timeouts)))

	return middleware.Chain(mux,
		middleware.Recovery(a.logger),
		middleware.Logging(a.logger.Named("http")),
	)
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	timeouts := resilience.DefaultTimeoutConfig()
	manager := shutdown.NewManager(a.logger, cfg.Server.ShutdownTimeout)

	if err := cfg.Gateway.Check(); err != nil {
		a.logger.Warn("Gateway is not fully configured; payment endpoints will fail", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, a.logger.Named("ratelimit"))
	manager.RegisterNoErr("rate_limiter", limiter.Shutdown)

	metricsServer := observability.StartMetricsServer(cfg.Server.MetricsPort, a.health, a.logger)
	manager.RegisterHTTPServer("metrics", metricsServer)

	healthServer := health.NewServer()
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}
	go func() {
		a.logger.Info("gRPC health server listening", zap.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil {
			a.logger.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	manager.Register("grpc", func(ctx context.Context) error {
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			grpcServer.Stop()
			return ctx.Err()
		}
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           a.routes(limiter, timeouts),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	manager.RegisterHTTPServer("http", httpServer)

	// Runs first: probes go unready before any listener closes.
	manager.RegisterNoErr("drain", func() {
		a.health.SetDraining(true)
		healthServer.Shutdown()
	})

	go a.watchHealth(ctx, healthServer)

	select {
	case <-ctx.Done():
		a.logger.Info("Shutdown signal received")
	case err := <-serverErr:
		a.logger.Error("HTTP server failed", zap.Error(err))
		_ = manager.Shutdown()
		return err
	}

	return manager.Shutdown()
}

// watchHealth mirrors the health checks into the gRPC health service
func (a *app) watchHealth(ctx context.Context, server *health.Server) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status := healthpb.HealthCheckResponse_SERVING
		if a.health.Check(checkCtx).Status != "healthy" {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		cancel()

		server.SetServingStatus("", status)
		server.SetServingStatus(gatewayHealthService, status)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
