// Package grading aggregates component marks into trimester and year-end results.
//
// All arithmetic runs on shopspring/decimal so that averages such as
// 12*0.30 + 14*0.30 + 16*0.40 come out as exactly 14.2 on every call site.
package grading

import (
	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/tier"
)

// Component names one of the three trimester marks.
type Component string

// Trimester mark components.
const (
	MAC Component = "mac" // continuous assessment
	PP  Component = "pp"  // partial exam
	PT  Component = "pt"  // trimester exam
)

// AllComponents lists the components in entry order.
var AllComponents = []Component{MAC, PP, PT}

// TrimestersPerYear is the number of grading periods in an academic year.
const TrimestersPerYear = 3

const averagePlaces = 2

var (
	macWeight = decimal.RequireFromString("0.30")
	ppWeight  = decimal.RequireFromString("0.30")
	ptWeight  = decimal.RequireFromString("0.40")
)

// Status tells whether a result carries an average.
type Status string

const (
	// StatusPending means not every input is present yet. It is not a failing grade.
	StatusPending Status = "pending"
	// StatusGraded means the average and classification are defined.
	StatusGraded Status = "graded"
)

// Classification is the label attached to an average.
type Classification string

// Primary and secondary classification vocabularies.
const (
	Positiva     Classification = "Positiva"
	Negativa     Classification = "Negativa"
	MuitoBom     Classification = "Muito Bom"
	Bom          Classification = "Bom"
	Suficiente   Classification = "Suficiente"
	Insuficiente Classification = "Insuficiente"
)

var (
	muitoBomFloor   = decimal.NewFromInt(17)
	bomFloor        = decimal.NewFromInt(14)
	suficienteFloor = decimal.NewFromInt(10)
)

// Components holds one trimester's raw marks. Absent marks are invalid NullDecimals.
type Components struct {
	MAC decimal.NullDecimal `json:"mac"`
	PP  decimal.NullDecimal `json:"pp"`
	PT  decimal.NullDecimal `json:"pt"`
}

// Get returns the value of a single component.
func (c Components) Get(comp Component) decimal.NullDecimal {
	switch comp {
	case MAC:
		return c.MAC
	case PP:
		return c.PP
	case PT:
		return c.PT
	default:
		return decimal.NullDecimal{}
	}
}

// Set returns a copy of c with comp replaced by v.
func (c Components) Set(comp Component, v decimal.NullDecimal) Components {
	switch comp {
	case MAC:
		c.MAC = v
	case PP:
		c.PP = v
	case PT:
		c.PT = v
	}
	return c
}

// Complete reports whether all three marks are present.
func (c Components) Complete() bool {
	return c.MAC.Valid && c.PP.Valid && c.PT.Valid
}

// MarkPlaces is the number of decimal places a mark may carry; stores keep
// marks at this scale.
const MarkPlaces = 2

// Validate checks every present mark against [0, t.ScaleMax()] and rejects
// marks finer than MarkPlaces. The first offending component is reported as
// *InvalidGradeValueError.
func (c Components) Validate(t tier.Tier) error {
	bound := t.ScaleMax()
	for _, comp := range AllComponents {
		v := c.Get(comp)
		if !v.Valid {
			continue
		}
		if v.Decimal.IsNegative() || v.Decimal.GreaterThan(bound) {
			return &InvalidGradeValueError{Component: comp, Value: v.Decimal, Bound: bound}
		}
		if !v.Decimal.Equal(v.Decimal.Truncate(MarkPlaces)) {
			return &InvalidGradeValueError{Component: comp, Value: v.Decimal, Bound: bound, Places: MarkPlaces}
		}
	}
	return nil
}

// Classify labels an average on the tier's table.
func Classify(t tier.Tier, average decimal.Decimal) Classification {
	if t == tier.Primary {
		if average.GreaterThanOrEqual(t.PassMark()) {
			return Positiva
		}
		return Negativa
	}
	switch {
	case average.GreaterThanOrEqual(muitoBomFloor):
		return MuitoBom
	case average.GreaterThanOrEqual(bomFloor):
		return Bom
	case average.GreaterThanOrEqual(suficienteFloor):
		return Suficiente
	default:
		return Insuficiente
	}
}

// Approved reports whether average reaches the tier's pass mark.
func Approved(t tier.Tier, average decimal.Decimal) bool {
	return average.GreaterThanOrEqual(t.PassMark())
}

// Value is a convenience constructor for a present mark.
func Value(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// round2 rounds half away from zero, which is half-up for non-negative marks.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(averagePlaces)
}
