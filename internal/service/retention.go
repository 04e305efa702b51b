package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xiaot623/gogo/memproxy/internal/domain"
	"github.com/xiaot623/gogo/memproxy/internal/metrics"
	"github.com/xiaot623/gogo/memproxy/internal/repository"
)

const (
	sweepIdle int32 = iota
	sweepRunning
)

// RetentionSweeper periodically deletes sessions older than the retention age together
// with their messages. At most one sweep runs at a time.
type RetentionSweeper struct {
	store     repository.Store
	retention time.Duration
	interval  time.Duration
	timeout   time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time

	state atomic.Int32

	mu      sync.Mutex
	last    domain.SweepStatus
	cron    *cron.Cron
	baseCtx context.Context
	cancel  context.CancelFunc
}

// SweeperOption customizes a RetentionSweeper.
type SweeperOption func(*RetentionSweeper)

// WithSweeperClock replaces time.Now when computing the cutoff.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(r *RetentionSweeper) { r.now = now }
}

// NewRetentionSweeper creates a sweeper. It does nothing until Start or RunOnce is called.
func NewRetentionSweeper(store repository.Store, retention, interval, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger, opts ...SweeperOption) *RetentionSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RetentionSweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		timeout:   timeout,
		metrics:   m,
		logger:    logger.With("component", "retention"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start schedules a sweep every interval.
func (r *RetentionSweeper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return errors.New("retention sweeper already started")
	}

	cl := cronLogger{logger: r.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", r.interval), r.tick); err != nil {
		return fmt.Errorf("schedule retention sweep: %w", err)
	}

	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.cron = c
	c.Start()
	r.logger.Info("retention sweeper started", "interval", r.interval, "retention", r.retention)
	return nil
}

// Stop unschedules the sweeper and waits for a running sweep to finish. When ctx expires
// first, the running sweep is cancelled and ctx's error returned.
func (r *RetentionSweeper) Stop(ctx context.Context) error {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron = nil
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	defer cancel()

	select {
	case <-c.Stop().Done():
		r.logger.Info("retention sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *RetentionSweeper) tick() {
	r.mu.Lock()
	ctx := r.baseCtx
	r.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := r.RunOnce(ctx); errors.Is(err, domain.ErrSweepInProgress) {
		r.logger.Warn("retention sweep skipped, previous run still active")
	}
}

// RunOnce performs one sweep and returns the number of sessions deleted. It returns
// domain.ErrSweepInProgress without touching the store while another sweep is running.
func (r *RetentionSweeper) RunOnce(ctx context.Context) (int64, error) {
	if !r.state.CompareAndSwap(sweepIdle, sweepRunning) {
		r.metrics.RecordSweep(metrics.SweepSkipped, 0, 0)
		return 0, domain.ErrSweepInProgress
	}
	defer r.state.Store(sweepIdle)

	sweepCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	startedAt := r.now().UTC()
	cutoff := startedAt.Add(-r.retention)
	start := time.Now()

	deleted, err := r.store.DeleteSessionsBefore(sweepCtx, cutoff)
	elapsed := time.Since(start)

	r.mu.Lock()
	r.last.LastRunAt = &startedAt
	r.last.LastDeleted = deleted
	r.last.LastError = ""
	if err != nil {
		r.last.LastError = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		r.metrics.RecordSweep(metrics.SweepError, 0, elapsed)
		r.logger.Warn("retention sweep failed", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("%w: retention sweep: %w", domain.ErrStorageUnavailable, err)
	}

	r.metrics.RecordSweep(metrics.SweepSuccess, deleted, elapsed)
	r.logger.Info("retention sweep finished", "cutoff", cutoff, "deleted", deleted, "duration", elapsed)
	return deleted, nil
}

// Status reports whether a sweep is running and how the last one went.
func (r *RetentionSweeper) Status() domain.SweepStatus {
	r.mu.Lock()
	status := r.last
	r.mu.Unlock()

	status.State = domain.SweepStateIdle
	if r.state.Load() == sweepRunning {
		status.State = domain.SweepStateRunning
	}
	return status
}

// cronLogger routes cron's logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
