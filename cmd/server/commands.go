package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/adapters/postgres"
	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
	"github.com/kevin07696/valueio-gateway/pkg/timeutil"
)

func newBillCommand(configPath *string) *cobra.Command {
	var (
		asOfDate  string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Charge subscriptions that are due, once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			asOf, err := timeutil.BillingCutoff(asOfDate, timeutil.Now())
			if err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}
			if batchSize == 0 {
				batchSize = a.cfg.Cron.BatchSize
			}

			ctx, cancel := resilience.DefaultTimeoutConfig().CronContext(cmd.Context())
			defer cancel()

			result, err := a.biller.ProcessDue(ctx, asOf, batchSize)
			if result != nil {
				out, _ := json.MarshalIndent(result, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			if err != nil {
				return err
			}
			if result.FailedCount > 0 {
				return fmt.Errorf("%d of %d renewals failed", result.FailedCount, result.ProcessedCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&asOfDate, "as-of", "", "bill everything due by the end of this day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "maximum renewals to charge (default cron.batch_size)")

	return cmd
}

func newCheckCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and gateway credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processor:  %s\n", a.cfg.Gateway.APIURL())
			fmt.Fprintf(out, "available:  %t\n", a.payments.Available())

			status := a.health.Check(cmd.Context())
			names := make([]string, 0, len(status.Checks))
			for name := range status.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "%-10s  %s\n", name+":", status.Checks[name])
			}

			if err := a.payments.Check(); err != nil {
				return err
			}
			if status.Status != "healthy" {
				return errors.New("health checks failed")
			}
			return nil
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrate requires database.driver=postgres, got %q", cfg.Database.Driver)
			}

			logger, err := newLogger(cfg.Environment, cfg.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pool, err := postgres.NewPool(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			logger.Info("Schema applied", zap.String("database", cfg.Database.Database))
			return nil
		},
	}
}
