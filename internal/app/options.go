package service

import (
	"time"

	"github.com/okian/pauta/internal/adapters/repository"
	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/tier"
	"github.com/okian/pauta/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses one backend for grades, payments and the class catalog.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.grades = s
			svc.finance = s
			svc.catalog = s
		}
	}
}

// WithGradeRepository overrides where trimester records live.
func WithGradeRepository(r repository.GradeRepository) Option {
	return func(svc *Service) {
		if r != nil {
			svc.grades = r
		}
	}
}

// WithFinanceRepository overrides where payment months are read from.
func WithFinanceRepository(r repository.FinanceRepository) Option {
	return func(svc *Service) {
		if r != nil {
			svc.finance = r
		}
	}
}

// WithCatalog overrides where class designations are read from.
func WithCatalog(c repository.AcademicCatalog) Option {
	return func(svc *Service) {
		if c != nil {
			svc.catalog = c
		}
	}
}

// WithResolver sets the tier resolver.
func WithResolver(r tier.Resolver) Option {
	return func(svc *Service) {
		if r != nil {
			svc.resolver = r
		}
	}
}

// WithEvaluator sets the delinquency evaluator used by the access gate.
func WithEvaluator(ev *finance.Evaluator) Option {
	return func(svc *Service) {
		if ev != nil {
			svc.evaluator = ev
		}
	}
}

// WithFinalPolicy sets how missing trimesters affect the final result.
func WithFinalPolicy(p grading.Policy) Option {
	return func(svc *Service) {
		svc.policy = p
	}
}

// WithClock sets the source of "today" for delinquency checks.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}
