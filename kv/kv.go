// Package kv holds the small string key-value stores used for the session and
// for local preferences.
package kv

import "context"

type Store interface {
	// Get returns ok=false when key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
