// Package access decides whether a student may see their own grades.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

// MonthLister is the read side of the finance ledger the gate needs.
type MonthLister interface {
	ListPendingMonths(ctx context.Context, studentID string) ([]finance.PaymentMonth, error)
}

// Reasons attached to allowed decisions.
const (
	ReasonClear       = "no overdue months"
	ReasonUnavailable = "payment data unavailable"
)

// Decision is the outcome of a grade visibility check.
type Decision struct {
	Allowed       bool                `json:"allowed"`
	Reason        string              `json:"reason"`
	OverdueMonths []finance.YearMonth `json:"overdue_months"`
	DaysRemaining int                 `json:"days_remaining"`
	// FailOpen is set when the decision was made without payment data.
	FailOpen bool `json:"fail_open,omitempty"`
}

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithEvaluator replaces the default delinquency evaluator.
func WithEvaluator(ev *finance.Evaluator) Option {
	return func(g *Gate) {
		if ev != nil {
			g.evaluator = ev
		}
	}
}

// WithClock sets the source of "today".
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(l logger.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.log = l
		}
	}
}

// Gate answers CanViewGrades. It reads finance data and never touches grades.
type Gate struct {
	months    MonthLister
	evaluator *finance.Evaluator
	now       func() time.Time
	log       logger.Logger
}

// NewGate creates a gate over the given finance ledger.
func NewGate(months MonthLister, opts ...Option) *Gate {
	g := &Gate{
		months:    months,
		evaluator: finance.NewEvaluator(),
		now:       time.Now,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluator returns the evaluator the gate delegates to.
func (g *Gate) Evaluator() *finance.Evaluator { return g.evaluator }

// CanViewGrades reports whether studentID may view grades today. A ledger
// read failure allows access.
func (g *Gate) CanViewGrades(ctx context.Context, studentID string) Decision {
	months, err := g.months.ListPendingMonths(ctx, studentID)
	if err != nil {
		g.log.Warn(ctx, "payment data unavailable, allowing grade access",
			logger.String("student_id", studentID),
			logger.Error(err),
		)
		metrics.RecordAccessFailOpen()
		metrics.RecordAccessDecision(true)
		return Decision{
			Allowed:       true,
			Reason:        ReasonUnavailable,
			OverdueMonths: []finance.YearMonth{},
			FailOpen:      true,
		}
	}

	status := g.evaluator.Evaluate(months, g.now())
	metrics.RecordDelinquencyEvaluation(status.State())
	metrics.RecordAccessDecision(status.GradesVisible)

	d := Decision{
		Allowed:       status.GradesVisible,
		OverdueMonths: status.OverdueMonths,
		DaysRemaining: status.DaysRemaining,
	}
	switch {
	case !d.Allowed:
		d.Reason = "overdue months: " + joinMonths(status.OverdueMonths)
		g.log.Debug(ctx, "grade access denied",
			logger.String("student_id", studentID),
			logger.Int("overdue", len(status.OverdueMonths)),
		)
	case len(status.OverdueMonths) > 0:
		d.Reason = fmt.Sprintf("%d overdue month(s), below threshold of %d: %s",
			len(status.OverdueMonths), g.evaluator.ContenciosoThreshold(), joinMonths(status.OverdueMonths))
	case status.DaysRemaining > 0:
		d.Reason = fmt.Sprintf("current month pending, %d day(s) of grace remaining", status.DaysRemaining)
	default:
		d.Reason = ReasonClear
	}
	return d
}

func joinMonths(months []finance.YearMonth) string {
	parts := make([]string, len(months))
	for i, m := range months {
		parts[i] = m.String()
	}
	return strings.Join(parts, ", ")
}
