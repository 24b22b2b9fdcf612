package cache

import (
	"errors"
	"fmt"
)

// Sentinel kinds for cache errors.
var (
	ErrEncode  = errors.New("cache encode failed")
	ErrDecode  = errors.New("cache decode failed")
	ErrBackend = errors.New("cache backend failed")
)

func errorf(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}
