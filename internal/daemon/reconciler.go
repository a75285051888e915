package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultReconcileInterval is the backend poll period when none is set.
const DefaultReconcileInterval = time.Second

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler pulls backend outputs and toplevels into the shell on a
// ticker, and on demand through Kick.
type Reconciler struct {
	interval time.Duration
	mirror   *Mirror
	logger   *slog.Logger
	kick     chan struct{}

	passes   atomic.Uint64
	failing  bool
	lastFail error
}

// NewReconciler creates a reconciler over mirror.
func NewReconciler(cfg ReconcilerConfig, mirror *Mirror) *Reconciler {
	r := &Reconciler{
		interval: cfg.Interval,
		mirror:   mirror,
		logger:   cfg.Logger,
		kick:     make(chan struct{}, 1),
	}
	if r.interval <= 0 {
		r.interval = DefaultReconcileInterval
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run reconciles until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug("reconciler started", "interval", r.interval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("reconciler stopped", "passes", r.passes.Load())
			return
		case <-ticker.C:
		case <-r.kick:
			ticker.Reset(r.interval)
		}
		r.ReconcileNow()
	}
}

// Kick asks Run for a pass as soon as possible. Kicks coalesce.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Passes counts completed reconciliation passes.
func (r *Reconciler) Passes() uint64 { return r.passes.Load() }

// ReconcileNow runs one pass on the calling goroutine. Only Run and
// daemon startup call it, never concurrently.
func (r *Reconciler) ReconcileNow() {
	err := r.sync()
	r.passes.Add(1)

	// Only transitions are logged.
	switch {
	case err != nil && (!r.failing || err.Error() != r.lastFail.Error()):
		r.logger.Warn("reconcile failed", "error", err)
	case err == nil && r.failing:
		r.logger.Info("reconcile recovered")
	}
	r.failing, r.lastFail = err != nil, err
}

// sync reports a panic in the mirror as an error.
func (r *Reconciler) sync() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during sync: %v", p)
		}
	}()
	return r.mirror.Sync()
}
