// Package store provides the durable key/value storage the client
// keeps its session token and profile snapshot in.
package store

import (
	"context"
	"errors"
)

// Keys used by the domain store. No transactionality is promised
// across them; a torn write degrades to an empty profile upstream.
const (
	KeyToken    = "chef_token"
	KeySnapshot = "chef_data"
	KeyIsNew    = "chef_is_new"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// PersistentStore is a string key/value store. Implementations may
// fail on I/O; callers log and treat failures as "no prior state".
type PersistentStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
