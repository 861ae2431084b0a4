// Package segsync synchronizes the membership of a remote Klaviyo segment
// with a locally persisted snapshot, emitting one lifecycle event per member
// that joined or left the segment since the last run.
//
// A synchronization cycle has three steps:
//
//  1. Fetch the full (paginated) segment membership from the Klaviyo API.
//  2. Diff it against the snapshot file: members present remotely but not
//     locally have joined, members present locally but not remotely have left.
//  3. Emit a "Joined Segment" or "Left Segment" event for every changed
//     member, then commit the updated snapshot for the next run.
//
// Event delivery is best-effort and at-least-once: an event send failure is
// logged and the member is still committed to the snapshot, while a crash
// between emission and commit replays the events on the next run.
//
// The Runner drives the cycle, the Reconciler owns the diff-and-commit logic,
// and the klaviyo and snapshot subpackages provide the API client and the
// snapshot file store. Lifecycle events can additionally be mirrored to a
// NATS subject for downstream consumers.
package segsync
