package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/planbilling/internal/billing"
	"github.com/smallbiznis/planbilling/internal/clock"
	notificationdomain "github.com/smallbiznis/planbilling/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/planbilling/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobBillingTick         = "billing_tick"
	JobNotificationCleanup = "notification_cleanup"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// BillingRunner runs one billing tick.
type BillingRunner interface {
	RunTick(ctx context.Context) (billing.TickResult, error)
}

// NotificationCleaner drops notifications older than the retention window.
type NotificationCleaner interface {
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Billing       *billing.Orchestrator
	Notifications notificationdomain.Service
	Config        Config `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	billing BillingRunner
	cleaner NotificationCleaner

	mu          sync.Mutex
	lastCleanup time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Billing == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
	}
	if p.Notifications != nil {
		s.cleaner = p.Notifications
	}
	return s, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// A deadline is a soft timeout; the next run picks up the rest.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs the billing tick and, when its interval has passed, the
// notification cleanup.
func (s *Scheduler) RunOnce(parent context.Context) error {
	err := s.runJob(parent, JobBillingTick, s.cfg.BatchSize, s.cfg.BillingTimeout, s.BillingTickJob)
	if s.cleanupDue() {
		err = errors.Join(err, s.runJob(parent, JobNotificationCleanup, 0, s.cfg.CleanupTimeout, s.NotificationCleanupJob))
	}
	return err
}

func (s *Scheduler) BillingTickJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	result, err := s.billing.RunTick(ctx)
	run.AddProcessed(result.Due)
	for i := 0; i < result.Errors; i++ {
		run.IncError()
	}
	if err != nil {
		s.logSchedulerError(ctx, nil, "billing tick had failures", JobBillingTick, err,
			zap.Int("due", result.Due),
			zap.Int("errors", result.Errors),
		)
	}
	// Failed memberships are retried by the next tick; only a deadline fails
	// the job.
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (s *Scheduler) NotificationCleanupJob(ctx context.Context) error {
	if s.cleaner == nil {
		return nil
	}
	deleted, err := s.cleaner.Cleanup(ctx, s.cfg.Retention)
	if err != nil {
		return err
	}
	jobRunFromContext(ctx).AddProcessed(int(deleted))
	s.markCleanup()
	return nil
}

func (s *Scheduler) cleanupDue() bool {
	if s.cleaner == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCleanup.IsZero() || s.clock.Now().Sub(s.lastCleanup) >= s.cfg.CleanupInterval
}

func (s *Scheduler) markCleanup() {
	s.mu.Lock()
	s.lastCleanup = s.clock.Now()
	s.mu.Unlock()
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// StartCron schedules RunOnce on the configured cron spec. Overlapping
// firings are skipped while a run is still in progress.
func (s *Scheduler) StartCron(ctx context.Context) (*cron.Cron, error) {
	logger := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.cfg.CronSpec, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", s.cfg.CronSpec, err)
	}
	c.Start()
	s.log.Info("scheduler cron started", zap.String("spec", s.cfg.CronSpec))
	return c, nil
}
