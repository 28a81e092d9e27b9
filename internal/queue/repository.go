package queue

import "context"

// Repository is the persistence contract shared by the SQLite Store and the
// Badger-backed store. All item queries are scoped; items outside the scope
// are invisible.
type Repository interface {
	Insert(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, scope Scope, id string) (*Item, error)
	List(ctx context.Context, scope Scope, statuses ...Status) ([]*Item, error)
	Update(ctx context.Context, item *Item) error
	Remove(ctx context.Context, scope Scope, id string) (bool, error)
	Clear(ctx context.Context, scope Scope) (int64, error)
	ClearFailed(ctx context.Context, scope Scope) (int64, error)
	RetryFailed(ctx context.Context, scope Scope, ids ...string) (int64, error)
	ResetProcessing(ctx context.Context, scope Scope) (int64, error)
	Stats(ctx context.Context, scope Scope) (Stats, error)
	Count(ctx context.Context, scope Scope) (int, error)
	CheckHealth(ctx context.Context) (DatabaseHealth, error)
	Close() error
}

var _ Repository = (*Store)(nil)
