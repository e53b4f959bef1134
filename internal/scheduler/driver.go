// Package scheduler runs scheduler passes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/recurring_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/recurring_ledger/internal/core/ports/services"
	"github.com/SscSPs/recurring_ledger/internal/middleware"
	"github.com/SscSPs/recurring_ledger/internal/platform/config"
	"github.com/robfig/cron/v3"
)

// Driver triggers SchedulerSvc.RunDue on a cron spec. Overlapping ticks are
// skipped rather than queued; a pass that overruns simply delays the next one.
type Driver struct {
	cronEngine *cron.Cron
	scheduler  portssvc.SchedulerSvc
	logger     *slog.Logger
	spec       string
	loc        *time.Location
	runOnStart bool
	now        func() time.Time

	// runCtx is cancelled when Stop gives up waiting, aborting an in-flight pass.
	runCtx    context.Context
	cancelRun context.CancelFunc
	stopOnce  sync.Once
}

// DriverOption is a functional option for configuring the driver
type DriverOption func(*Driver)

// WithDriverClock overrides the wall clock, for tests.
func WithDriverClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a driver from the scheduler configuration.
func NewDriver(cfg config.SchedulerConfig, scheduler portssvc.SchedulerSvc, logger *slog.Logger, options ...DriverOption) (*Driver, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.With(slog.String("component", "scheduler"))
	cronLogger := slogCronLogger{logger: logger}

	d := &Driver{
		cronEngine: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		scheduler:  scheduler,
		logger:     logger,
		spec:       cfg.CronSpec,
		loc:        loc,
		runOnStart: cfg.RunOnStart,
		now:        time.Now,
	}
	for _, option := range options {
		option(d)
	}
	d.runCtx, d.cancelRun = context.WithCancel(middleware.WithLogger(context.Background(), logger))

	if _, err := d.cronEngine.AddFunc(d.spec, func() { _, _ = d.Tick(d.runCtx) }); err != nil {
		d.cancelRun()
		return nil, fmt.Errorf("invalid scheduler cron spec %q: %w", d.spec, err)
	}
	return d, nil
}

// Start begins firing on the cron schedule, optionally running one pass immediately.
func (d *Driver) Start() {
	d.logger.Info("Starting scheduler", slog.String("spec", d.spec), slog.String("timezone", d.loc.String()))
	d.cronEngine.Start()
	if d.runOnStart {
		// Runs outside the cron chain, so it may overlap the first scheduled tick.
		go func() { _, _ = d.Tick(d.runCtx) }()
	}
}

// Tick runs one pass as of the current instant in the configured time zone,
// so "today" is the calendar date in that zone.
func (d *Driver) Tick(ctx context.Context) (domain.RunSummary, error) {
	asOf := d.now().In(d.loc)
	start := time.Now()
	summary, err := d.scheduler.RunDue(ctx, asOf)
	if err != nil {
		d.logger.Error("Scheduler pass failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return summary, err
	}
	d.logger.Debug("Scheduler tick finished", slog.Duration("elapsed", time.Since(start)))
	return summary, nil
}

// Stop prevents new ticks and waits for a running pass. If ctx expires first
// the pass is cancelled; work already committed stays committed.
func (d *Driver) Stop(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping scheduler...")
		done := d.cronEngine.Stop()
		select {
		case <-done.Done():
			d.logger.Info("Scheduler gracefully stopped.")
		case <-ctx.Done():
			err = fmt.Errorf("scheduler did not stop in time: %w", ctx.Err())
			d.logger.Warn("Scheduler stop timed out, cancelling in-flight pass")
		}
		d.cancelRun()
	})
	return err
}

// slogCronLogger adapts slog to cron.Logger.
type slogCronLogger struct {
	logger *slog.Logger
}

func (l slogCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l slogCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
