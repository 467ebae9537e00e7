// Package kvstore provides a small namespaced key-value store with
// per-entry expiry. The policy engine uses it for removal-notice
// idempotency records and the active scheduled-job id.
package kvstore

import (
	"context"
)

type KVStore interface {
	// Returns the empty string when the key is absent or expired.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
