package segsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ozanturksever/segsync/snapshot"
)

// Fetcher retrieves the full current membership of the remote segment.
// An error is distinct from an empty segment: an empty set with a nil error
// means the segment genuinely has no members.
type Fetcher interface {
	FetchMembers(ctx context.Context) (MemberSet, error)
}

// Emitter sends a single lifecycle event for one member. Sends are
// best-effort: the reconciler logs failures and keeps going.
type Emitter interface {
	Emit(ctx context.Context, identity, email string, joining bool) error
}

// MultiEmitter fans one event out to several emitters. Every emitter is
// attempted; the first error is returned after all have run.
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, identity, email string, joining bool) error {
	var firstErr error
	for _, e := range m {
		if err := e.Emit(ctx, identity, email, joining); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SnapshotStore persists the membership snapshot between runs.
type SnapshotStore interface {
	Load() snapshot.Snapshot
	Save(snapshot.Snapshot) error
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Logger  *slog.Logger
	Metrics *Metrics

	// Now overrides the timestamp source (tests).
	Now func() time.Time
}

// Reconciler diffs fetched membership against the snapshot store and emits
// one lifecycle event per changed member. Each pass is idempotent: rerunning
// it with the same fetched set produces an empty delta.
type Reconciler struct {
	store   SnapshotStore
	emitter Emitter
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewReconciler creates a reconciler over the given store and emitter.
func NewReconciler(store SnapshotStore, emitter Emitter, cfg ReconcilerConfig) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "reconciler")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{
		store:   store,
		emitter: emitter,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.Now,
	}
}

// Reconcile runs the join pass followed by the leave pass against the same
// fetched set. The passes are independent: a snapshot write failure in one
// does not stop the other, and their errors are joined.
func (r *Reconciler) Reconcile(ctx context.Context, fetched MemberSet) error {
	return errors.Join(
		r.JoinPass(ctx, fetched),
		r.LeavePass(ctx, fetched),
	)
}

// JoinPass emits a joined event for every fetched member missing from the
// snapshot, then commits the enlarged snapshot. Emit failures are logged and
// the member is committed anyway (at-least-once delivery).
func (r *Reconciler) JoinPass(ctx context.Context, fetched MemberSet) error {
	snap := r.store.Load()
	delta := Diff(fetched, snap.Profiles)
	if len(delta.Joined) == 0 {
		r.logger.Info("no new members")
		return nil
	}

	r.logger.Info("members joined", "count", len(delta.Joined), "identities", delta.Joined)
	r.emitAll(ctx, delta.Joined, fetched, true)

	snap.Profiles = append(snap.Profiles, delta.Joined...)
	return r.commit(snap)
}

// LeavePass emits a left event for every snapshot member absent from the
// fetched set, then commits the shrunk snapshot. The snapshot is reloaded
// rather than reusing any state from the join pass.
func (r *Reconciler) LeavePass(ctx context.Context, fetched MemberSet) error {
	snap := r.store.Load()
	delta := Diff(fetched, snap.Profiles)
	if len(delta.Left) == 0 {
		r.logger.Info("no stale members")
		return nil
	}

	r.logger.Info("members left", "count", len(delta.Left), "identities", delta.Left)
	r.emitAll(ctx, delta.Left, fetched, false)

	stale := make(map[string]struct{}, len(delta.Left))
	for _, id := range delta.Left {
		stale[id] = struct{}{}
	}
	kept := snap.Profiles[:0]
	for _, id := range snap.Profiles {
		if _, ok := stale[id]; !ok {
			kept = append(kept, id)
		}
	}
	snap.Profiles = kept
	return r.commit(snap)
}

// emitAll fires one event per identity, logging and counting failures
// without interrupting the remaining members.
func (r *Reconciler) emitAll(ctx context.Context, identities []string, fetched MemberSet, joining bool) {
	dir := directionFor(joining)
	for _, id := range identities {
		if err := r.emitter.Emit(ctx, id, fetched[id], joining); err != nil {
			r.logger.Error("event emit failed", "identity", id, "direction", dir, "error", err)
			r.metrics.observeEmit(dir, false)
			continue
		}
		r.metrics.observeEmit(dir, true)
	}
	r.metrics.observeDelta(dir, len(identities))
}

// commit stamps and persists the snapshot.
func (r *Reconciler) commit(snap snapshot.Snapshot) error {
	now := r.now().UTC()
	snap.LastUpdated = &now
	if err := r.store.Save(snap); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotWrite, err)
	}
	r.metrics.observeSnapshotSize(len(snap.Profiles))
	r.logger.Info("snapshot updated", "members", len(snap.Profiles))
	return nil
}
