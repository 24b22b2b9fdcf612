package grading

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidGradeValue = errors.New("invalid grade value")
	ErrUnknownPolicy     = errors.New("unknown final policy")
)

// InvalidGradeValueError reports a component outside [0, Bound], or one with
// more than Places decimal places when Places is set.
type InvalidGradeValueError struct {
	Component Component
	Value     decimal.Decimal
	Bound     decimal.Decimal
	Places    int32
}

func (e *InvalidGradeValueError) Error() string {
	if e.Places > 0 {
		return fmt.Sprintf("%s: %s=%s has more than %d decimal places", ErrInvalidGradeValue, e.Component, e.Value, e.Places)
	}
	return fmt.Sprintf("%s: %s=%s outside [0, %s]", ErrInvalidGradeValue, e.Component, e.Value, e.Bound)
}

// Is lets errors.Is match ErrInvalidGradeValue.
func (e *InvalidGradeValueError) Is(target error) bool {
	return target == ErrInvalidGradeValue
}
