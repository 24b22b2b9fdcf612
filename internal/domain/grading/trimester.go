package grading

import (
	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/tier"
)

// TrimesterResult is derived from Components; it is never set independently.
type TrimesterResult struct {
	Status         Status              `json:"status"`
	Average        decimal.NullDecimal `json:"average"`
	Classification Classification      `json:"classification,omitempty"`
	// Approved is meaningful only when Status is StatusGraded.
	Approved bool `json:"approved"`
}

// Pending reports whether the result has no average yet.
func (r TrimesterResult) Pending() bool { return r.Status != StatusGraded }

// ComputeTrimester weighs MAC 30%, PP 30% and PT 40% and rounds half-up to two
// places. Out-of-range marks are rejected; missing marks yield a pending result.
func ComputeTrimester(c Components, t tier.Tier) (TrimesterResult, error) {
	if err := c.Validate(t); err != nil {
		return TrimesterResult{}, err
	}
	if !c.Complete() {
		return TrimesterResult{Status: StatusPending}, nil
	}

	avg := round2(c.MAC.Decimal.Mul(macWeight).
		Add(c.PP.Decimal.Mul(ppWeight)).
		Add(c.PT.Decimal.Mul(ptWeight)))

	return TrimesterResult{
		Status:         StatusGraded,
		Average:        decimal.NewNullDecimal(avg),
		Classification: Classify(t, avg),
		Approved:       Approved(t, avg),
	}, nil
}
