// Package state holds the key/value backends the pool persists into and the
// write journal that makes every pool operation all-or-nothing.
package state

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key is absent.
var ErrNotFound = errors.New("state: key not found")

// Op is a single buffered write. Delete wins over Value.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Reader is the read half of a backend.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Backend is a durable key/value store that can apply a set of ops atomically.
type Backend interface {
	Reader
	// Apply writes every op or none of them.
	Apply(ctx context.Context, ops []Op) error
	Close() error
}
