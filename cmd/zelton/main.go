package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/clock"
	"github.com/zeltonlabs/zelton/internal/config"
	"github.com/zeltonlabs/zelton/internal/gateway"
	"github.com/zeltonlabs/zelton/internal/ledger"
	"github.com/zeltonlabs/zelton/internal/lifecycle"
	"github.com/zeltonlabs/zelton/internal/migration"
	"github.com/zeltonlabs/zelton/internal/observability"
	"github.com/zeltonlabs/zelton/internal/payout"
	payoutdomain "github.com/zeltonlabs/zelton/internal/payout/domain"
	"github.com/zeltonlabs/zelton/internal/reconcile"
	"github.com/zeltonlabs/zelton/internal/rentpayment"
	"github.com/zeltonlabs/zelton/internal/scheduler"
	"github.com/zeltonlabs/zelton/internal/seed"
	"github.com/zeltonlabs/zelton/internal/server"
	"github.com/zeltonlabs/zelton/internal/subscription"
	"github.com/zeltonlabs/zelton/internal/webhook"
	"github.com/zeltonlabs/zelton/pkg/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "zelton",
		Short:   "Zelton payment backend CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newServeCmd(),
		newSchedulerCmd(),
		newAllCmd(),
		newReconcileCmd(),
		newPayoutsCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Populate the pricing plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the payment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newSchedulerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run background reconciliation, payout, and expiry sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			runScheduler()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start API server and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runMonolith()
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	var dryRun bool
	var maxAgeSeconds int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a single reconciliation sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcileOnce(dryRun, time.Duration(maxAgeSeconds)*time.Second)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be checked without touching anything")
	cmd.Flags().IntVar(&maxAgeSeconds, "max-age-seconds", 0, "skip transactions older than this (0 = no cap)")
	return cmd
}

func newPayoutsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payouts",
		Short: "Run a single payout retry sweep and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPayoutsOnce()
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)
	return startAndStop(app)
}

func runSeed() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		ledger.Module,
		seed.Module,
	)
	return startAndStop(app)
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		ledger.Module,
		gateway.Module,
		lifecycle.Module,
		payout.Module,
		rentpayment.Module,
		subscription.Module,
		webhook.Module,
		server.Module,
	)
	app.Run()
}

func runScheduler() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		ledger.Module,
		gateway.Module,
		lifecycle.Module,
		payout.Module,
		subscription.Module,
		reconcile.Module,
		scheduler.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runMonolith() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		ledger.Module,
		gateway.Module,
		lifecycle.Module,
		payout.Module,
		rentpayment.Module,
		subscription.Module,
		webhook.Module,
		reconcile.Module,
		scheduler.Module,
		server.Module,
		fx.Invoke(startScheduler),
	)
	app.Run()
}

func runReconcileOnce(dryRun bool, maxAge time.Duration) error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		ledger.Module,
		gateway.Module,
		lifecycle.Module,
		payout.Module,
		reconcile.Module,
		fx.Invoke(func(s *reconcile.Service, log *zap.Logger) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			report, err := s.Sweep(ctx, dryRun, maxAge)
			if err != nil {
				return err
			}
			log.Info("reconcile sweep finished",
				zap.Bool("dry_run", dryRun),
				zap.Int("eligible", report.Eligible),
				zap.Int("checked", report.Checked),
				zap.Int("completed", report.Completed),
				zap.Int("failed", report.Failed),
				zap.Int("pending", report.Pending),
				zap.Int("errors", report.Errors))
			return nil
		}),
	)
	return startAndStop(app)
}

func runPayoutsOnce() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		ledger.Module,
		gateway.Module,
		payout.Module,
		fx.Invoke(func(svc payoutdomain.Service, log *zap.Logger) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			attempted, err := svc.RunDueRetries(ctx)
			if err != nil {
				return err
			}
			log.Info("payout retry sweep finished", zap.Int("attempted", attempted))
			return nil
		}),
	)
	return startAndStop(app)
}

func startAndStop(app *fx.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	return app.Stop(context.Background())
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
