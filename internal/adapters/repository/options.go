package repository

import (
	"time"

	"github.com/okian/pauta/pkg/logger"
)

// Option applies a configuration option to a store.
type Option func(*storeOptions)

type storeOptions struct {
	now func() time.Time
	log logger.Logger
}

func newStoreOptions(opts []Option) storeOptions {
	o := storeOptions{
		now: time.Now,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithClock sets the time source used to stamp saved records.
func WithClock(now func() time.Time) Option {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used for conflicts and backend errors.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.log = l
		}
	}
}
