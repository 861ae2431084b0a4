package segsync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics
}

// Runner drives one synchronization cycle: fetch, then reconcile. A failed or
// empty fetch aborts the cycle before any snapshot I/O. Neither outcome is
// fatal to the process; only configuration errors are.
type Runner struct {
	fetcher    Fetcher
	reconciler *Reconciler
	logger     *slog.Logger
	metrics    *Metrics

	mu    sync.RWMutex
	state State
}

// NewRunner creates a runner over the given fetcher and reconciler.
func NewRunner(fetcher Fetcher, reconciler *Reconciler, cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "runner")
	}
	return &Runner{
		fetcher:    fetcher,
		reconciler: reconciler,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		state:      StateIdle,
	}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

func (r *Runner) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Run executes a single fetch-reconcile cycle. The returned error reports a
// failed fetch or a snapshot write failure so callers can distinguish them
// from a clean run; it is informational and does not require aborting the
// process.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()

	r.setState(StateFetching)
	members, err := r.fetcher.FetchMembers(ctx)
	if err != nil {
		r.setState(StateAborted)
		r.metrics.observeFetch(false, 0)
		r.logger.Error("membership fetch failed", "error", err)
		return err
	}
	r.metrics.observeFetch(true, len(members))

	if len(members) == 0 {
		r.setState(StateAborted)
		r.logger.Warn("no members fetched, nothing to reconcile")
		return nil
	}

	r.setState(StateReconciling)
	err = r.reconciler.Reconcile(ctx, members)
	r.setState(StateDone)
	r.metrics.observeSync(err == nil, time.Since(start))

	if err != nil {
		r.logger.Error("reconciliation finished with errors", "error", err)
		return err
	}

	r.logger.Info("sync complete", "members", len(members), "duration", time.Since(start))
	return nil
}
