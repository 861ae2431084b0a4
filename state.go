package segsync

// State is the runner's position in the synchronization lifecycle.
type State int

const (
	// StateIdle means no cycle has started yet.
	StateIdle State = iota
	// StateFetching means the remote membership fetch is in flight.
	StateFetching
	// StateReconciling means deltas are being computed and emitted.
	StateReconciling
	// StateDone means the cycle finished, regardless of partial emit failures.
	StateDone
	// StateAborted means the cycle stopped early because the fetch failed or
	// yielded no members; the snapshot was not touched.
	StateAborted
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
