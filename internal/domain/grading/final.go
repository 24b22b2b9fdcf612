package grading

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/tier"
)

// Policy decides how missing trimester averages affect the year-end result.
type Policy string

const (
	// PolicyLenient averages whichever trimesters are present.
	PolicyLenient Policy = "lenient"
	// PolicyStrict keeps the year pending until all trimesters are graded.
	PolicyStrict Policy = "strict"
)

// ParsePolicy reads a policy name; the empty string selects PolicyLenient.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLenient:
		return PolicyLenient, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return PolicyLenient, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// FinalOption applies a configuration option to ComputeFinal.
type FinalOption func(*finalConfig)

type finalConfig struct {
	policy Policy
}

// WithPolicy selects the year-end policy.
func WithPolicy(p Policy) FinalOption {
	return func(c *finalConfig) {
		if p == PolicyLenient || p == PolicyStrict {
			c.policy = p
		}
	}
}

// FinalResult is the year-end aggregate.
type FinalResult struct {
	Status         Status              `json:"status"`
	Average        decimal.NullDecimal `json:"average"`
	Classification Classification      `json:"classification,omitempty"`
	Approved       bool                `json:"approved"`
	// Present counts the trimester averages that entered the mean.
	Present int `json:"present"`
}

// ComputeFinal averages the present trimester averages. With no present
// average the result is pending. The mean is not rounded.
func ComputeFinal(averages []decimal.NullDecimal, t tier.Tier, opts ...FinalOption) FinalResult {
	cfg := finalConfig{policy: PolicyLenient}
	for _, opt := range opts {
		opt(&cfg)
	}

	sum := decimal.Zero
	present := 0
	for _, a := range averages {
		if !a.Valid {
			continue
		}
		sum = sum.Add(a.Decimal)
		present++
	}

	res := FinalResult{Status: StatusPending, Present: present}
	if present == 0 {
		return res
	}
	if cfg.policy == PolicyStrict && (present < TrimestersPerYear || present != len(averages)) {
		return res
	}

	mean := sum.Div(decimal.NewFromInt(int64(present)))
	res.Status = StatusGraded
	res.Average = decimal.NewNullDecimal(mean)
	res.Classification = Classify(t, mean)
	res.Approved = Approved(t, mean)
	return res
}
