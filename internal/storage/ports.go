package storage

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Load when nothing has been saved under a key.
var ErrNoSnapshot = errors.New("snapshot not found")

// SnapshotStore persists an opaque blob under a string key.
//
// Save replaces the whole value atomically. Load returns ErrNoSnapshot for a
// key that was never written.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}
