// internal/common/cache/cache.go
// Package cache holds the ephemeral TTL store shared by the analyzer and reranker.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cinesense/internal/common/jsonx"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 300 * time.Second

// Store is a key/value store with per-entry expiry. Implementations must be
// safe for concurrent use; concurrent writers to one key are last-write-wins.
type Store interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context)
}

// GetAs reads key and returns it as T. Values stored in-process are type
// asserted; values read back from a remote backend arrive as JSON and are decoded.
func GetAs[T any](ctx context.Context, store Store, key string) (T, bool) {
	var zero T

	raw, ok := store.Get(ctx, key)
	if !ok {
		return zero, false
	}

	switch v := raw.(type) {
	case T:
		return v, true
	case []byte:
		var out T
		if err := jsonx.Unmarshal(v, &out); err != nil {
			return zero, false
		}
		return out, true
	default:
		return zero, false
	}
}

// Key returns the hex SHA-256 of the canonical JSON encoding of v.
func Key(v interface{}) string {
	data, err := jsonx.Marshal(v)
	if err != nil {
		data = []byte(fmt.Sprintf("%#v", v))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
