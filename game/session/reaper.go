package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/codenames/stats"
)

const (
	DefaultReapInterval = time.Hour
	DefaultIdleTimeout  = time.Hour
)

// Reaper periodically removes sessions that have been idle longer than
// maxIdle, whether or not anyone is still attached.
type Reaper struct {
	manager  *Manager
	stats    stats.Collector
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger
	exec     Executor

	sweepMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Executor runs fn serialized with every other writer of the registry and
// returns once fn has finished. It returns an error, without running fn, when
// it can no longer accept work.
type Executor func(ctx context.Context, fn func()) error

// ReaperOption configures a Reaper.
type ReaperOption func(*Reaper)

// WithExecutor makes scheduled sweeps run through exec, typically the
// gateway's event loop, instead of on the reaper's own goroutine.
func WithExecutor(exec Executor) ReaperOption {
	return func(r *Reaper) {
		r.exec = exec
	}
}

// NewReaper creates a reaper; zero durations fall back to the defaults.
func NewReaper(manager *Manager, collector stats.Collector, interval, maxIdle time.Duration, logger *zap.Logger, opts ...ReaperOption) *Reaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultIdleTimeout
	}
	if collector == nil {
		collector = stats.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reaper{
		manager:  manager,
		stats:    collector,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs the sweep loop in the background until ctx is cancelled or Stop
// is called. Calling Start on a running reaper is a no-op.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.loop(ctx, r.done)
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.scheduledSweep(ctx)
		}
	}
}

func (r *Reaper) scheduledSweep(ctx context.Context) {
	if r.exec == nil {
		r.Sweep()
		return
	}
	if err := r.exec(ctx, func() { r.Sweep() }); err != nil && ctx.Err() == nil {
		r.logger.Warn("Skipped session sweep", zap.Error(err))
	}
}

// Sweep removes every expired session once and returns the removed keys.
func (r *Reaper) Sweep() []string {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	removed := r.manager.CleanupExpiredSessions(r.maxIdle)
	for _, key := range removed {
		r.stats.RemoveGame(key)
	}
	if len(removed) > 0 {
		r.logger.Info("Cleaned up expired sessions",
			zap.Int("removed", len(removed)), zap.Int("remaining", r.manager.Count()))
	}
	return removed
}
