package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/valueio-gateway/internal/adapters/memory"
	"github.com/kevin07696/valueio-gateway/internal/adapters/postgres"
	"github.com/kevin07696/valueio-gateway/internal/adapters/secrets"
	"github.com/kevin07696/valueio-gateway/internal/adapters/valueio"
	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"github.com/kevin07696/valueio-gateway/internal/services/payment"
	"github.com/kevin07696/valueio-gateway/internal/services/subscription"
	"github.com/kevin07696/valueio-gateway/internal/services/vault"
	pkghttp "github.com/kevin07696/valueio-gateway/pkg/http"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// store is everything the services need from the host platform, plus the
// writes used to load fixtures
type store interface {
	ports.OrderRepository
	ports.SubscriptionManager
	ports.CartService
	SaveOrder(ctx context.Context, order *domain.Order) error
	SaveSubscription(ctx context.Context, sub *domain.Subscription) error
}

type postgresStore struct {
	*postgres.OrderRepository
	*postgres.SubscriptionRepository
	*postgres.CartRepository
}

// app holds the wired components shared by every command
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	store     store
	vaultRepo ports.VaultRepository
	processor *valueio.Client
	payments  *payment.Service
	vault     *vault.Service
	biller    *subscription.Biller
	health    *observability.HealthChecker
}

func newLogger(environment string, cfg config.LoggerConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if environment != "production" || cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid logger.level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// newApp loads configuration and wires stores, processor client and services
func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Environment, cfg.Logger)
	if err != nil {
		return nil, err
	}

	source, err := secrets.NewSource(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, fmt.Errorf("init secrets backend: %w", err)
	}
	if err := secrets.ResolveGatewayTokens(ctx, cfg, source); err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		health: observability.NewHealthChecker(),
	}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	httpClient := pkghttp.NewHTTPClient(pkghttp.ProcessorClientConfig(cfg.Gateway.Timeout))
	a.processor = valueio.NewClient(valueio.ConfigFromGateway(cfg.Gateway), httpClient, logger.Named("valueio"))

	cards := payment.NewCardReader(a.processor)
	a.vault = vault.NewService(a.vaultRepo, a.store, a.store, a.processor, cards, logger.Named("vault"))
	a.payments = payment.NewService(payment.Dependencies{
		Config:        cfg.Gateway,
		Processor:     a.processor,
		Orders:        a.store,
		Subscriptions: a.store,
		Carts:         a.store,
		Vault:         a.vault,
		Links:         payment.Links{BaseURL: cfg.Server.PublicBaseURL},
		Logger:        logger.Named("payment"),
	})
	a.biller = subscription.NewBiller(a.store, a.payments, logger.Named("billing"))

	a.health.Register("gateway", func(ctx context.Context) error {
		if err := cfg.Gateway.Check(); err != nil {
			return err
		}
		if state := a.processor.CircuitState(); state == valueio.StateOpen {
			return fmt.Errorf("processor circuit is %s", state)
		}
		return nil
	})

	logger.Info("Application initialized",
		zap.String("environment", cfg.Environment),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("processor_url", cfg.Gateway.APIURL()),
		zap.Bool("test_mode", cfg.Gateway.TestMode),
		zap.Bool("vault_enabled", cfg.Gateway.VaultEnabled),
	)

	return a, nil
}

func (a *app) initStore(ctx context.Context) error {
	switch a.cfg.Database.Driver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		if a.cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return err
			}
		}

		executor := postgres.NewDBExecutor(pool)
		a.pool = pool
		a.store = postgresStore{
			OrderRepository:        postgres.NewOrderRepository(pool),
			SubscriptionRepository: postgres.NewSubscriptionRepository(pool, executor),
			CartRepository:         postgres.NewCartRepository(pool),
		}
		a.vaultRepo = postgres.NewVaultRepository(pool, executor)
		a.health.Register("database", executor.Ping)
	default:
		mem := memory.NewStore()
		a.store = mem
		a.vaultRepo = mem
		a.logger.Warn("Using in-memory store; data is lost on restart")
	}
	return nil
}

// close releases the database pool and flushes the logger
func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.logger.Sync()
}
