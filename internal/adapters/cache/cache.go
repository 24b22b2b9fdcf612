// Package cache provides tag-invalidated read caches for repository lookups.
package cache

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
)

// Cache stores encoded values under a key. Every entry may carry tags, and
// Invalidate drops all entries carrying any of the given tags.
type Cache interface {
	// Get decodes the value stored at key into dst. It reports false on a miss.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v under key for ttl. A non-positive ttl uses the cache default.
	Set(ctx context.Context, key string, v any, ttl time.Duration, tags ...string) error
	// Invalidate removes every entry tagged with one of tags.
	Invalidate(ctx context.Context, tags ...string) error
}

// Default settings shared by the implementations.
const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 10000
	DefaultKeyPrefix  = "pauta:"
)

var codec = sonic.ConfigStd

func encode(v any) ([]byte, error) {
	b, err := codec.Marshal(v)
	if err != nil {
		return nil, errorf(ErrEncode, err)
	}
	return b, nil
}

func decode(b []byte, dst any) error {
	if err := codec.Unmarshal(b, dst); err != nil {
		return errorf(ErrDecode, err)
	}
	return nil
}
