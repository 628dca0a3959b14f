// Package scheduler runs the background sweeps: payment reconciliation,
// payout retries, and subscription expiry.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/zeltonlabs/zelton/internal/config"
	payoutdomain "github.com/zeltonlabs/zelton/internal/payout/domain"
	"github.com/zeltonlabs/zelton/internal/reconcile"
	subscriptiondomain "github.com/zeltonlabs/zelton/internal/subscription/domain"
)

type SchedulerParams struct {
	fx.In

	Reconciler    *reconcile.Service
	Payouts       payoutdomain.Service
	Subscriptions subscriptiondomain.Service
	Config        config.Config
	Logger        *zap.Logger
}

type Scheduler struct {
	reconciler    *reconcile.Service
	payouts       payoutdomain.Service
	subscriptions subscriptiondomain.Service
	cfg           config.Config
	log           *zap.Logger
}

func NewScheduler(p SchedulerParams) *Scheduler {
	return &Scheduler{
		reconciler:    p.Reconciler,
		payouts:       p.Payouts,
		subscriptions: p.Subscriptions,
		cfg:           p.Config,
		log:           p.Logger.Named("scheduler"),
	}
}

// RunForever blocks until ctx is cancelled, driving each job off its
// own ticker. Jobs run inline; a slow sweep delays only its own loop.
func (s *Scheduler) RunForever(ctx context.Context) {
	s.log.Info("scheduler started",
		zap.Duration("reconcile_interval", s.cfg.ReconcileInterval),
		zap.Duration("payout_sweep_interval", s.cfg.PayoutSweepInterval),
		zap.Duration("expiry_sweep_interval", s.cfg.ExpirySweepInterval))

	go s.loop(ctx, "reconcile", s.cfg.ReconcileInterval, s.ReconcileJob)
	go s.loop(ctx, "payout_retries", s.cfg.PayoutSweepInterval, s.PayoutRetryJob)
	go s.loop(ctx, "subscription_expiry", s.cfg.ExpirySweepInterval, s.SubscriptionExpiryJob)

	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		s.log.Warn("job disabled", zap.String("job", name))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				s.log.Error("job failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}

func (s *Scheduler) ReconcileJob(ctx context.Context) error {
	report, err := s.reconciler.Sweep(ctx, false, 0)
	if err != nil {
		return err
	}
	if report.Checked > 0 {
		s.log.Info("reconcile sweep",
			zap.Int("eligible", report.Eligible),
			zap.Int("checked", report.Checked),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("pending", report.Pending))
	}
	return nil
}

func (s *Scheduler) PayoutRetryJob(ctx context.Context) error {
	attempted, err := s.payouts.RunDueRetries(ctx)
	if err != nil {
		return err
	}
	if attempted > 0 {
		s.log.Info("payout retry sweep", zap.Int("attempted", attempted))
	}
	return nil
}

func (s *Scheduler) SubscriptionExpiryJob(ctx context.Context) error {
	expired, err := s.subscriptions.ExpireLapsed(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.log.Info("subscription expiry sweep", zap.Int("expired", expired))
	}
	return nil
}

var Module = fx.Module("scheduler",
	fx.Provide(NewScheduler),
)
