package interfaces

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key is absent. Absence is a
// normal state, not a failure.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the local persistent storage used for the device
// fingerprint and the persisted profile.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
