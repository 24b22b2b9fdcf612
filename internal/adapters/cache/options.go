package cache

import "time"

// Option applies a configuration option to a cache.
type Option func(*settings)

type settings struct {
	ttl        time.Duration
	maxEntries int
	prefix     string
	now        func() time.Time
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		prefix:     DefaultKeyPrefix,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithTTL sets the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxEntries bounds the in-memory cache. Values <= 0 leave it unbounded.
func WithMaxEntries(n int) Option {
	return func(s *settings) {
		s.maxEntries = n
	}
}

// WithKeyPrefix namespaces Redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithClock sets the time source used for expiry in the in-memory cache.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
