package testsupport

import (
	"context"
	"sync"

	"equipqr/internal/queue"
)

// FakeDispatcher records dispatched items and replays scripted results.
type FakeDispatcher struct {
	mu sync.Mutex
	// Results maps an item id to the errors returned on successive attempts.
	// Once exhausted the dispatch succeeds.
	Results map[string][]error
	// Default is returned for items without scripted results.
	Default error
	// Before runs ahead of each dispatch; tests use it to flip connectivity mid-pass.
	Before func(item *queue.Item)
	calls  []string
}

// NewFakeDispatcher returns a dispatcher that succeeds unless scripted otherwise.
func NewFakeDispatcher() *FakeDispatcher {
	return &FakeDispatcher{Results: make(map[string][]error)}
}

// Fail scripts errs for successive dispatches of id.
func (f *FakeDispatcher) Fail(id string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[id] = append(f.Results[id], errs...)
}

// Dispatch implements the manager's dispatcher contract.
func (f *FakeDispatcher) Dispatch(_ context.Context, item *queue.Item) error {
	if f.Before != nil {
		f.Before(item)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, item.ID)
	if scripted := f.Results[item.ID]; len(scripted) > 0 {
		err := scripted[0]
		f.Results[item.ID] = scripted[1:]
		return err
	}
	return f.Default
}

// Calls returns the ids dispatched so far in order.
func (f *FakeDispatcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}
