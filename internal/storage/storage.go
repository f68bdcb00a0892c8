package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrWriteFailed = errors.New("storage write failed")
)

// Store is a scoped key→JSON-value store. Get decodes into out and returns
// ErrNotFound both when the key is absent and when the stored value does not
// parse (the latter is logged by the implementation, never surfaced). Writes
// must never silently no-op: Set, Remove and Clear surface ErrWriteFailed.
type Store interface {
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
