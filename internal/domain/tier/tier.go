// Package tier maps class designations to the grading regime they belong to.
package tier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is one of the two grading regimes.
type Tier int

const (
	// Secondary is the 0-20 scale and the fallback for unknown designations.
	Secondary Tier = iota
	// Primary is the 0-10 scale used from Iniciação through 6ª Classe.
	Primary
)

var (
	primaryScaleMax   = decimal.NewFromInt(10)
	secondaryScaleMax = decimal.NewFromInt(20)
	primaryPassMark   = decimal.NewFromInt(5)
	secondaryPassMark = decimal.NewFromInt(10)
)

// String returns the lowercase tier name used in logs and metric labels.
func (t Tier) String() string {
	switch t {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ScaleMax is the highest mark a component may carry in this tier.
func (t Tier) ScaleMax() decimal.Decimal {
	if t == Primary {
		return primaryScaleMax
	}
	return secondaryScaleMax
}

// PassMark is the lowest average that counts as approved (inclusive).
func (t Tier) PassMark() decimal.Decimal {
	if t == Primary {
		return primaryPassMark
	}
	return secondaryPassMark
}

// Parse reads a tier name as produced by String.
func Parse(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return Secondary, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}
