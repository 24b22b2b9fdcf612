// Package finance evaluates a student's monthly payment ledger.
package finance

import (
	"fmt"
	"time"
)

// YearMonth identifies a billing month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the billing month containing t.
func MonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth reads the "2006-01" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("%w: %q", ErrInvalidYearMonth, s)
	}
	return MonthOf(t), nil
}

// String renders the "2006-01" form.
func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before reports whether m is earlier than o.
func (m YearMonth) Before(o YearMonth) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// After reports whether m is later than o.
func (m YearMonth) After(o YearMonth) bool { return o.Before(m) }

// MarshalText implements encoding.TextMarshaler.
func (m YearMonth) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *YearMonth) UnmarshalText(b []byte) error {
	parsed, err := ParseYearMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// PaymentStatus is the state of a billing month.
type PaymentStatus string

// Payment states. Pending moves to Paid once and never back.
const (
	StatusPending PaymentStatus = "pending"
	StatusPaid    PaymentStatus = "paid"
)

// PaymentMonth is one billed month of a student's ledger.
type PaymentMonth struct {
	StudentID string        `json:"student_id"`
	Month     YearMonth     `json:"month"`
	Status    PaymentStatus `json:"status"`
	DueDate   time.Time     `json:"due_date"`
}
