// Package offline owns the lifecycle of queued mutations.
//
// A Manager is bound to one scope (organization + user). It validates and
// persists new items, replays pending items in FIFO order when the backend is
// reachable, applies the retry and backoff policy, and derives the status and
// banner a UI renders. Subscribers receive an Update for every enqueue, item
// transition, sync pass, and connectivity change.
//
// Sync passes are serialized. Background passes triggered by Enqueue and by
// reconnecting run in goroutines tracked by the manager and are drained by
// Stop.
package offline
