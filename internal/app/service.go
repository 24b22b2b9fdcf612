// Package service wires the grading engine to its repositories and exposes
// the operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/adapters/repository"
	"github.com/okian/pauta/internal/domain/access"
	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/internal/domain/tier"
	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

const statusRejected = "rejected"

// GradeEntry is one staff submission of a trimester's marks. Components
// replace the stored ones; absent marks stay pending.
type GradeEntry struct {
	Key        model.TrimesterKey `json:"key"`
	Components grading.Components `json:"components"`
	// Version is the version the editor last read, 0 for a first entry.
	Version int64  `json:"version"`
	Editor  string `json:"editor"`
}

// StudentView is what a student sees for one discipline.
type StudentView struct {
	Decision   access.Decision         `json:"decision"`
	Trimesters []model.TrimesterRecord `json:"trimesters,omitempty"`
	Final      *model.FinalRecord      `json:"final,omitempty"`
}

// Service implements the API dependencies for the grading engine.
type Service struct {
	grades  repository.GradeRepository
	finance repository.FinanceRepository
	catalog repository.AcademicCatalog

	resolver  tier.Resolver
	evaluator *finance.Evaluator
	gate      *access.Gate
	policy    grading.Policy
	now       func() time.Time

	logger logger.Logger
}

// New constructs a Service. Without repository options everything is kept
// in a shared in-memory store.
func New(opts ...Option) *Service {
	s := &Service{
		policy: grading.PolicyLenient,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.grades == nil || s.finance == nil || s.catalog == nil {
		mem := repository.NewMemoryStore(repository.WithLogger(s.logger))
		if s.grades == nil {
			s.grades = mem
		}
		if s.finance == nil {
			s.finance = mem
		}
		if s.catalog == nil {
			s.catalog = mem
		}
	}
	if s.resolver == nil {
		s.resolver = tier.NewPrefixResolver(tier.WithLogger(s.logger))
	}
	if s.evaluator == nil {
		s.evaluator = finance.NewEvaluator()
	}
	s.gate = access.NewGate(s.finance,
		access.WithEvaluator(s.evaluator),
		access.WithClock(s.now),
		access.WithLogger(s.logger),
	)
	return s
}

// Policy returns the final-grade policy in effect.
func (s *Service) Policy() grading.Policy { return s.policy }

// ComputeTrimester derives a trimester result for the given tier.
func (s *Service) ComputeTrimester(_ context.Context, c grading.Components, t tier.Tier) (grading.TrimesterResult, error) {
	res, err := grading.ComputeTrimester(c, t)
	if err != nil {
		var ive *grading.InvalidGradeValueError
		if errors.As(err, &ive) {
			metrics.RecordGradeRejection(string(ive.Component))
		}
		metrics.RecordTrimesterComputation(t.String(), statusRejected)
		return res, err
	}
	metrics.RecordTrimesterComputation(t.String(), string(res.Status))
	return res, nil
}

// ComputeFinal aggregates trimester averages under the configured policy.
func (s *Service) ComputeFinal(_ context.Context, averages []decimal.NullDecimal, t tier.Tier) grading.FinalResult {
	res := grading.ComputeFinal(averages, t, grading.WithPolicy(s.policy))
	metrics.RecordFinalComputation(t.String(), string(res.Status))
	return res
}

// EvaluateDelinquency evaluates a ledger as of today.
func (s *Service) EvaluateDelinquency(_ context.Context, months []finance.PaymentMonth, today time.Time) finance.DelinquencyStatus {
	st := s.evaluator.Evaluate(months, today)
	metrics.RecordDelinquencyEvaluation(st.State())
	return st
}

// CanViewGrades decides whether the student may see their grades now.
func (s *Service) CanViewGrades(ctx context.Context, studentID string) access.Decision {
	return s.gate.CanViewGrades(ctx, studentID)
}

// EnterGrades validates and stores a trimester's marks. Entry is never gated
// on the student's payments.
func (s *Service) EnterGrades(ctx context.Context, e GradeEntry) (model.TrimesterRecord, error) {
	if err := e.Key.Validate(); err != nil {
		return model.TrimesterRecord{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	if strings.TrimSpace(e.Editor) == "" {
		return model.TrimesterRecord{}, fmt.Errorf("%w: editor is required", ErrInvalidEntry)
	}

	t, err := s.tierOf(ctx, e.Key.ClassID)
	if err != nil {
		return model.TrimesterRecord{}, err
	}
	res, err := s.ComputeTrimester(ctx, e.Components, t)
	if err != nil {
		return model.TrimesterRecord{}, fmt.Errorf("trimester %s: %w", e.Key, err)
	}

	saved, err := s.grades.Save(ctx, model.TrimesterRecord{
		Key:        e.Key,
		Components: e.Components,
		Result:     res,
		Version:    e.Version,
	}, e.Editor)
	if err != nil {
		return model.TrimesterRecord{}, err
	}

	s.logger.Info(ctx, "grades entered",
		logger.String("key", e.Key.String()),
		logger.String("editor", e.Editor),
		logger.String("tier", t.String()),
		logger.String("status", string(res.Status)),
		logger.Any("version", saved.Version),
	)
	return saved, nil
}

// TrimesterRecord returns the stored trimester without access checks.
func (s *Service) TrimesterRecord(ctx context.Context, key model.TrimesterKey) (model.TrimesterRecord, error) {
	if err := key.Validate(); err != nil {
		return model.TrimesterRecord{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return s.grades.Fetch(ctx, key)
}

// GradeHistory returns the change log of a trimester, oldest first.
func (s *Service) GradeHistory(ctx context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return s.grades.History(ctx, key)
}

// FinalRecord derives the year result from whatever trimesters are stored.
func (s *Service) FinalRecord(ctx context.Context, key model.FinalKey) (model.FinalRecord, error) {
	fr, _, err := s.final(ctx, key)
	return fr, err
}

// StudentGrades is the student's own view. When the gate denies access the
// returned error wraps ErrGradesBlocked and carries the decision.
func (s *Service) StudentGrades(ctx context.Context, key model.FinalKey) (StudentView, error) {
	if err := key.Validate(); err != nil {
		return StudentView{}, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	d := s.CanViewGrades(ctx, key.StudentID)
	view := StudentView{Decision: d}
	if !d.Allowed {
		return view, &BlockedError{Decision: d}
	}

	fr, records, err := s.final(ctx, key)
	if err != nil {
		return view, err
	}
	view.Trimesters = records
	view.Final = &fr
	return view, nil
}

func (s *Service) final(ctx context.Context, key model.FinalKey) (model.FinalRecord, []model.TrimesterRecord, error) {
	if err := key.Validate(); err != nil {
		return model.FinalRecord{}, nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	t, err := s.tierOf(ctx, key.ClassID)
	if err != nil {
		return model.FinalRecord{}, nil, err
	}

	fr := model.FinalRecord{Key: key}
	var records []model.TrimesterRecord
	for i := range fr.TrimesterAverages {
		rec, err := s.grades.Fetch(ctx, key.Trimester(i+1))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.FinalRecord{}, nil, err
		}
		records = append(records, rec)
		if rec.Result.Status == grading.StatusGraded {
			fr.TrimesterAverages[i] = rec.Result.Average
		}
	}
	fr.Result = s.ComputeFinal(ctx, fr.TrimesterAverages[:], t)
	return fr, records, nil
}

func (s *Service) tierOf(ctx context.Context, classID string) (tier.Tier, error) {
	designation, err := s.catalog.ClassDesignation(ctx, classID)
	if err != nil {
		return tier.Secondary, fmt.Errorf("class %s designation: %w", classID, err)
	}
	return s.resolver.Resolve(ctx, designation), nil
}
