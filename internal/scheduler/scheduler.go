package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	balancedomain "github.com/coopsuite/copay/internal/balance/domain"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/locks"
	notifdomain "github.com/coopsuite/copay/internal/notification/domain"
	"github.com/coopsuite/copay/internal/observability/metrics"
	"github.com/coopsuite/copay/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

const (
	JobSettlementSweep   = "settlement_sweep"
	JobNotificationRetry = "notification_retry"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Balances      balancedomain.Service
	Notifications notifdomain.Service
	Clock         clock.Clock
	Metrics       *metrics.Metrics `optional:"true"`
	Locker        *locks.Locker    `optional:"true"`
	Config        Config           `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	clock         clock.Clock
	balances      balancedomain.Service
	notifications notifdomain.Service
	metrics       *metrics.Metrics
	locker        *locks.Locker
	guards        *guard.Guard
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Balances == nil || p.Notifications == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           cfg,
		clock:         p.Clock,
		balances:      p.Balances,
		notifications: p.Notifications,
		metrics:       p.Metrics,
		locker:        p.Locker,
		guards:        guard.New(),
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	if !s.guards.TryAcquire(name) {
		s.log.Debug("job still running, skipping", zap.String("job", name))
		s.metrics.RecordSweepRun(parent, name, "skipped_overlap")
		return nil
	}
	defer s.guards.Release(name)

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, lockKey(name), s.cfg.LockTTL)
		if err != nil {
			// Run without the distributed lock rather than stall every
			// job on a Redis outage. The in-process guard still holds.
			s.log.Warn("job lock unavailable", zap.String("job", name), zap.Error(err))
		} else if !ok {
			s.log.Debug("job locked by another instance", zap.String("job", name))
			s.metrics.RecordSweepRun(parent, name, "skipped_locked")
			return nil
		} else {
			defer func() {
				if releaseErr := s.locker.Release(context.WithoutCancel(ctx), lockKey(name), token); releaseErr != nil {
					s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(releaseErr))
				}
			}()
		}
	}

	start := s.clock.Now()
	log := s.log.With(zap.String("job", name))
	log.Debug("job start")

	err := fn(ctx)
	duration := time.Since(start)

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.RecordSweepRun(parent, name, "timeout")
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	if err != nil {
		s.metrics.RecordSweepRun(parent, name, "error")
		log.Warn("job failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", name, err)
	}

	s.metrics.RecordSweepRun(parent, name, "ok")
	log.Debug("job finish", zap.Duration("duration", duration))
	return nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobSettlementSweep, func(ctx context.Context) error {
			return s.runJob(ctx, JobSettlementSweep, s.cfg.JobTimeout, s.SettlementSweepJob)
		}},
		{JobNotificationRetry, func(ctx context.Context) error {
			return s.runJob(ctx, JobNotificationRetry, s.cfg.JobTimeout, s.NotificationRetryJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs means every job runs (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// SettlementSweepJob re-runs settlement for completed payments whose
// balance credits did not all land, typically after a crash between the
// webhook and the ledger write.
func (s *Scheduler) SettlementSweepJob(ctx context.Context) error {
	result, err := s.balances.BatchRedistribute(ctx, s.cfg.SweepBatchSize)
	if result.Processed > 0 {
		s.log.Info("settlement sweep",
			zap.Int("processed", result.Processed),
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
		)
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		s.log.Warn("settlement sweep left failures",
			zap.Int("failed", result.Failed),
			zap.Strings("errors", result.Errors),
		)
	}
	return nil
}

// NotificationRetryJob pushes due outbox rows through the sender.
func (s *Scheduler) NotificationRetryJob(ctx context.Context) error {
	sent, err := s.notifications.DispatchDue(ctx, s.cfg.NotifyBatchSize)
	if sent > 0 {
		s.log.Info("notification retry", zap.Int("sent", sent))
	}
	return err
}

func lockKey(job string) string {
	return "copay:scheduler:" + job
}
