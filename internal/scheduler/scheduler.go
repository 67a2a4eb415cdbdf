// Package scheduler drives the periodic settlement sweep: auto-completing
// stale bookings, escalating unanswered disputes, and triggering the weekly
// payout batch. Each pass is idempotent; conditional status updates make a
// concurrent or repeated run a no-op.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/visalane/visalane/internal/booking/domain"
	"github.com/visalane/visalane/internal/clock"
	disputedomain "github.com/visalane/visalane/internal/dispute/domain"
	obsmetrics "github.com/visalane/visalane/internal/observability/metrics"
	payoutdomain "github.com/visalane/visalane/internal/payout/domain"
	"github.com/visalane/visalane/internal/sweeplock"
	"github.com/visalane/visalane/pkg/busday"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

const sweepLockKey = "visalane:scheduler:sweep"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	BookingSvc bookingdomain.Service
	DisputeSvc disputedomain.Service
	Batcher    payoutdomain.Batcher
	Locker     *sweeplock.Locker `optional:"true"`
	Config     Config            `optional:"true"`
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	bookingSvc bookingdomain.Service
	disputeSvc disputedomain.Service
	batcher    payoutdomain.Batcher
	locker     *sweeplock.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.BookingSvc == nil || p.DisputeSvc == nil || p.Batcher == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        cfg,
		genID:      p.GenID,
		clock:      p.Clock,
		bookingSvc: p.BookingSvc,
		disputeSvc: p.DisputeSvc,
		batcher:    p.Batcher,
		locker:     p.Locker,
	}, nil
}

type jobRun struct {
	job            string
	runID          string
	startedAt      time.Time
	processedCount int
	errorCount     int
}

func (r *jobRun) AddProcessed(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.processedCount += count
}

func (r *jobRun) IncError() {
	if r == nil {
		return
	}
	r.errorCount++
}

func (s *Scheduler) newJobRun(job string) *jobRun {
	return &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: time.Now(),
	}
}

func (s *Scheduler) logJobFinish(run *jobRun) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int64("duration_ms", time.Since(run.startedAt).Milliseconds()),
		zap.Int("processed_count", run.processedCount),
		zap.Int("error_count", run.errorCount),
	}
	if run.errorCount > 0 {
		s.log.Warn("scheduler.job.finish", fields...)
		return
	}
	s.log.Info("scheduler.job.finish", fields...)
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context, run *jobRun) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	run := s.newJobRun(name)
	s.log.Info("scheduler.job.start",
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Settlement()
	schedMetrics.IncJobRun(name)

	err := fn(ctx, run)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	schedMetrics.AddItemsProcessed(name, run.processedCount)
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(run)
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.locker.Enabled() {
		token, ok, err := s.locker.TryLock(parent, sweepLockKey, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable, proceeding unlocked", zap.Error(err))
		} else if !ok {
			s.log.Info("sweep already running elsewhere, skipping")
			return nil
		} else {
			defer func() {
				if err := s.locker.Release(parent, sweepLockKey, token); err != nil {
					s.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	var err error
	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"auto_complete", s.isJobEnabled("auto_complete"), func(ctx context.Context) error {
			return s.runJob(ctx, "auto_complete", 30*time.Second, s.AutoCompleteJob)
		}},
		{"resolve_disputes", s.isJobEnabled("resolve_disputes"), func(ctx context.Context) error {
			return s.runJob(ctx, "resolve_disputes", 2*time.Minute, s.ResolveDisputesJob)
		}},
		{"weekly_payouts", s.isJobEnabled("weekly_payouts") && s.payoutDue(), func(ctx context.Context) error {
			return s.runJob(ctx, "weekly_payouts", 10*time.Minute, s.WeeklyPayoutJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
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
	// Empty EnabledJobs enables everything.
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

// payoutDue gates the weekly batch to Fridays unless forced.
func (s *Scheduler) payoutDue() bool {
	if s.cfg.ForcePayout {
		return true
	}
	return s.clock.Now().UTC().Weekday() == time.Friday
}

// AutoCompleteJob completes confirmed bookings whose session ended more than
// the grace period ago and that have no active dispute.
func (s *Scheduler) AutoCompleteJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	cutoff := busday.Sub(now, s.cfg.GraceDays)
	schedMetrics := obsmetrics.Settlement()
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		bookings, err := s.fetchBookingsForAutoComplete(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			run.IncError()
			return errors.Join(jobErr, err)
		}
		if len(bookings) == 0 {
			break
		}

		claimed := 0
		for _, booking := range bookings {
			completed, err := s.bookingSvc.Complete(ctx, bookingdomain.CompleteParams{
				BookingID:          booking.ID,
				Notes:              "Auto-completed: no issues reported",
				ConsultationStatus: bookingdomain.ConsultationStatusCompleted,
			})
			if err != nil {
				jobErr = errors.Join(jobErr, fmt.Errorf("booking %s: %w", booking.ID, err))
				run.IncError()
				s.log.Error("auto-completion failed",
					zap.String("job", run.job),
					zap.Int64("booking_id", int64(booking.ID)),
					zap.Error(err),
				)
				continue
			}
			if completed {
				claimed++
				run.AddProcessed(1)
				schedMetrics.IncBookingAutoCompleted()
			}
		}
		if claimed == 0 {
			// Every claim lost its race or failed; stop rather than spin on
			// the same rows.
			break
		}
	}

	return jobErr
}

// ResolveDisputesJob escalates active disputes unanswered past the grace
// period. Each dispute is isolated; one failure never aborts the rest.
func (s *Scheduler) ResolveDisputesJob(ctx context.Context, run *jobRun) error {
	now := s.clock.Now()
	cutoff := busday.Sub(now, s.cfg.GraceDays)
	schedMetrics := obsmetrics.Settlement()
	var jobErr error

	for {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		disputes, err := s.fetchDisputesForResolution(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			run.IncError()
			return errors.Join(jobErr, err)
		}
		if len(disputes) == 0 {
			break
		}

		resolved := 0
		for _, dispute := range disputes {
			outcome, err := s.disputeSvc.AutoResolve(ctx, dispute.ID)
			if err != nil {
				jobErr = errors.Join(jobErr, fmt.Errorf("dispute %s: %w", dispute.ID, err))
				run.IncError()
				s.log.Error("dispute auto-resolution failed",
					zap.String("job", run.job),
					zap.Int64("dispute_id", int64(dispute.ID)),
					zap.Int64("booking_id", int64(dispute.BookingID)),
					zap.String("type", string(dispute.Type)),
					zap.Error(err),
				)
				continue
			}
			if outcome != disputedomain.OutcomeNoop {
				resolved++
				run.AddProcessed(1)
				schedMetrics.IncDisputeResolved(outcome)
			}
		}
		if resolved == 0 {
			break
		}
	}

	return jobErr
}

// WeeklyPayoutJob settles the current Monday-Friday window through the payout
// batcher.
func (s *Scheduler) WeeklyPayoutJob(ctx context.Context, run *jobRun) error {
	summary, err := s.batcher.Run(ctx, s.clock.Now())
	run.AddProcessed(summary.Submitted)
	if summary.Failed > 0 {
		for i := 0; i < summary.Failed; i++ {
			run.IncError()
		}
	}
	return err
}
