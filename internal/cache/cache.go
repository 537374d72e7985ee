// Package cache provides the TTL key-value store that shields the upstream
// API from redundant fetches. Entries persist across process restarts within
// their TTL window. Expired entries behave identically to absent ones on the
// normal read path; GetStale exposes them for the stale-while-error fallback.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned when a key is absent or its entry has expired.
var ErrMiss = errors.New("cache: miss")

// Store is the contract shared by every cache backend.
type Store interface {
	// Get returns the stored value, or ErrMiss when the key is absent or
	// the entry has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// GetStale returns the stored value even when the entry has expired.
	// ErrMiss is returned only when the key is physically absent.
	GetStale(ctx context.Context, key string) ([]byte, error)
	// Put overwrites the entry for key unconditionally.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes the entry for key; removing an absent key is not
	// an error.
	Invalidate(ctx context.Context, key string) error
}

// Sweeper is implemented by backends that can evict entries expired beyond
// the stale retention window.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// entry is the serialized envelope every backend persists.
type entry struct {
	Key        string          `json:"key"`
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Value      json.RawMessage `json:"value"`
}

func (e entry) expiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

func (e entry) expired(now time.Time) bool {
	return !now.Before(e.expiresAt())
}

// Key derives a deterministic, collision-free cache key from the parts of a
// request signature. Parts are joined with a separator that cannot occur in
// the inputs before hashing, so distinct logical keys never collide.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
