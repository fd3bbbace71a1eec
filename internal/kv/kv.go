package kv

import (
	"context"
	"errors"
)

// ErrConflict is returned by Update when the key kept changing underneath it.
var ErrConflict = errors.New("kv: too many concurrent updates")

// UpdateFunc receives the current value (nil when absent) and returns the
// value to store. It may run more than once; an error aborts the update and
// is returned unchanged.
type UpdateFunc func(current []byte) ([]byte, error)

// Namespace is a flat string-keyed document store. Get returns nil, nil for
// an absent key. Update is an atomic read-modify-write of one key, also
// across processes sharing the backend.
type Namespace interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
