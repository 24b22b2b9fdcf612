package finance

import (
	"sort"
	"time"
)

// Defaults used when no configuration is supplied.
const (
	DefaultContenciosoThreshold = 2
	DefaultGracePeriodDays      = 5
)

const day = 24 * time.Hour

// Delinquency states reported by DelinquencyStatus.State.
const (
	StateClear       = "clear"
	StateGrace       = "grace"
	StateOverdue     = "overdue"
	StateContencioso = "contencioso"
)

// DelinquencyStatus is derived per query and never stored.
type DelinquencyStatus struct {
	InContencioso bool        `json:"in_contencioso"`
	OverdueMonths []YearMonth `json:"overdue_months"`
	// DaysRemaining counts down the grace period of the current month when it
	// is the only pending month; otherwise it is 0.
	DaysRemaining int  `json:"days_remaining"`
	GradesVisible bool `json:"grades_visible"`
}

// State summarizes the status for logs and metric labels.
func (s DelinquencyStatus) State() string {
	switch {
	case s.InContencioso:
		return StateContencioso
	case len(s.OverdueMonths) > 0:
		return StateOverdue
	case s.DaysRemaining > 0:
		return StateGrace
	default:
		return StateClear
	}
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithContenciosoThreshold sets how many overdue months block grade access.
func WithContenciosoThreshold(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithGracePeriodDays sets the countdown length for the current month.
func WithGracePeriodDays(days int) Option {
	return func(e *Evaluator) {
		if days >= 0 {
			e.graceDays = days
		}
	}
}

// WithLocation sets the time zone used to turn instants into calendar dates.
func WithLocation(loc *time.Location) Option {
	return func(e *Evaluator) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// Evaluator turns a payment ledger into a DelinquencyStatus. It holds only
// configuration and is safe for concurrent use.
type Evaluator struct {
	threshold int
	graceDays int
	loc       *time.Location
}

// NewEvaluator creates an evaluator with the default threshold and grace period.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		threshold: DefaultContenciosoThreshold,
		graceDays: DefaultGracePeriodDays,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ContenciosoThreshold returns the configured threshold.
func (e *Evaluator) ContenciosoThreshold() int { return e.threshold }

// GracePeriodDays returns the configured grace period.
func (e *Evaluator) GracePeriodDays() int { return e.graceDays }

// Evaluate inspects months as of today. Paid entries are ignored, so callers
// may pass either the full ledger or only pending months. A nil ledger yields
// a clear status.
func (e *Evaluator) Evaluate(months []PaymentMonth, today time.Time) DelinquencyStatus {
	todayDate := e.dateOf(today)
	current := MonthOf(todayDate)

	overdue := make(map[YearMonth]struct{})
	pending := make(map[YearMonth]time.Time)
	for _, m := range months {
		// Without a due date nothing can be overdue; skip rather than block.
		if m.Status != StatusPending || m.DueDate.IsZero() {
			continue
		}
		due := e.dateOf(m.DueDate)
		if due.Before(todayDate) {
			overdue[m.Month] = struct{}{}
		}
		if !m.Month.After(current) {
			if prev, ok := pending[m.Month]; !ok || due.Before(prev) {
				pending[m.Month] = due
			}
		}
	}

	status := DelinquencyStatus{OverdueMonths: make([]YearMonth, 0, len(overdue))}
	for ym := range overdue {
		status.OverdueMonths = append(status.OverdueMonths, ym)
	}
	sort.Slice(status.OverdueMonths, func(i, j int) bool {
		return status.OverdueMonths[i].Before(status.OverdueMonths[j])
	})

	status.InContencioso = len(status.OverdueMonths) >= e.threshold
	status.GradesVisible = !status.InContencioso

	if !status.InContencioso && len(pending) == 1 {
		if due, ok := pending[current]; ok {
			sinceDue := max(0, int(todayDate.Sub(due)/day))
			status.DaysRemaining = max(0, e.graceDays-sinceDue)
		}
	}
	return status
}

// dateOf maps an instant to midnight UTC of its calendar date in e.loc, so
// that subtracting two dates always yields whole days.
func (e *Evaluator) dateOf(t time.Time) time.Time {
	y, m, d := t.In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
