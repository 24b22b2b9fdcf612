package finance

import "errors"

// Sentinel error kinds for this package.
var (
	ErrInvalidYearMonth = errors.New("invalid year-month")
)
