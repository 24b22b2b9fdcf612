package tier

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownTier = errors.New("unknown tier")
)
