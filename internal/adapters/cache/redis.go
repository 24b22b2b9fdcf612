package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries as plain keys and tags as sets of member keys.
type Redis struct {
	client redis.UniversalClient
	cfg    settings
}

var _ Cache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	return &Redis{client: client, cfg: newSettings(opts)}
}

// Dial connects to addr and pings it before returning.
func Dial(ctx context.Context, addr string, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errorf(ErrBackend, err)
	}
	return NewRedis(client, opts...), nil
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) entryKey(key string) string { return r.cfg.prefix + "entry:" + key }
func (r *Redis) tagKey(tag string) string   { return r.cfg.prefix + "tag:" + tag }

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errorf(ErrBackend, err)
	}
	if err := decode(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration, tags ...string) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = r.cfg.ttl
	}
	full := r.entryKey(key)
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, full, b, ttl)
		for _, t := range tags {
			p.SAdd(ctx, r.tagKey(t), full)
		}
		return nil
	})
	if err != nil {
		return errorf(ErrBackend, err)
	}
	return nil
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		tk := r.tagKey(t)
		members, err := r.client.SMembers(ctx, tk).Result()
		if err != nil {
			return errorf(ErrBackend, err)
		}
		keys := append(members, tk)
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return errorf(ErrBackend, err)
		}
	}
	return nil
}
