package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

const memoryStoreName = "memory"

// MemoryStore keeps every repository in process memory. It is safe for
// concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	grades  map[model.TrimesterKey]model.TrimesterRecord
	history map[model.TrimesterKey][]model.ChangeEvent
	ledger  map[string]map[finance.YearMonth]finance.PaymentMonth
	classes map[string]string
	opts    storeOptions
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		grades:  make(map[model.TrimesterKey]model.TrimesterRecord),
		history: make(map[model.TrimesterKey][]model.ChangeEvent),
		ledger:  make(map[string]map[finance.YearMonth]finance.PaymentMonth),
		classes: make(map[string]string),
		opts:    newStoreOptions(opts),
	}
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Fetch implements GradeRepository.
func (s *MemoryStore) Fetch(_ context.Context, key model.TrimesterKey) (model.TrimesterRecord, error) {
	defer observe(memoryStoreName, "fetch", time.Now())

	s.mu.RLock()
	rec, ok := s.grades[key]
	s.mu.RUnlock()
	if !ok {
		return model.TrimesterRecord{}, fmt.Errorf("trimester %s: %w", key, ErrNotFound)
	}
	return rec, nil
}

// Save implements GradeRepository.
func (s *MemoryStore) Save(ctx context.Context, rec model.TrimesterRecord, editor string) (model.TrimesterRecord, error) {
	defer observe(memoryStoreName, "save", time.Now())

	if err := rec.Key.Validate(); err != nil {
		return model.TrimesterRecord{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.grades[rec.Key]
	if rec.Version != cur.Version {
		metrics.RecordVersionConflict()
		s.opts.log.Warn(ctx, "grade save rejected, stale version",
			logger.String("key", rec.Key.String()),
			logger.Any("expected", cur.Version),
			logger.Any("got", rec.Version),
		)
		return model.TrimesterRecord{}, fmt.Errorf("trimester %s: have version %d, stored %d: %w",
			rec.Key, rec.Version, cur.Version, ErrVersionConflict)
	}

	now := s.opts.now().UTC()
	rec.Version = cur.Version + 1
	rec.UpdatedAt = now
	rec.UpdatedBy = editor

	events := model.Diff(rec.Key, cur.Components, rec.Components, editor, now, rec.Version)
	s.grades[rec.Key] = rec
	s.history[rec.Key] = append(s.history[rec.Key], events...)
	metrics.RecordHistoryEvents(len(events))
	return rec, nil
}

// History implements GradeRepository.
func (s *MemoryStore) History(_ context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error) {
	defer observe(memoryStoreName, "history", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChangeEvent, len(s.history[key]))
	copy(out, s.history[key])
	return out, nil
}

// ListPendingMonths implements FinanceRepository.
func (s *MemoryStore) ListPendingMonths(_ context.Context, studentID string) ([]finance.PaymentMonth, error) {
	defer observe(memoryStoreName, "list_pending", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]finance.PaymentMonth, 0, len(s.ledger[studentID]))
	for _, m := range s.ledger[studentID] {
		if m.Status == finance.StatusPending {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

// AddMonth implements FinanceLedger.
func (s *MemoryStore) AddMonth(_ context.Context, m finance.PaymentMonth) error {
	defer observe(memoryStoreName, "add_month", time.Now())

	if err := validateMonth(m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	months, ok := s.ledger[m.StudentID]
	if !ok {
		months = make(map[finance.YearMonth]finance.PaymentMonth)
		s.ledger[m.StudentID] = months
	}
	if prev, ok := months[m.Month]; ok && prev.Status == finance.StatusPaid && m.Status != finance.StatusPaid {
		return fmt.Errorf("student %s month %s: %w", m.StudentID, m.Month, ErrAlreadyPaid)
	}
	months[m.Month] = m
	return nil
}

// MarkPaid implements FinanceLedger.
func (s *MemoryStore) MarkPaid(_ context.Context, studentID string, month finance.YearMonth) error {
	defer observe(memoryStoreName, "mark_paid", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.ledger[studentID][month]
	if !ok {
		return fmt.Errorf("student %s month %s: %w", studentID, month, ErrNotFound)
	}
	if m.Status == finance.StatusPaid {
		return fmt.Errorf("student %s month %s: %w", studentID, month, ErrAlreadyPaid)
	}
	m.Status = finance.StatusPaid
	s.ledger[studentID][month] = m
	return nil
}

// ClassDesignation implements AcademicCatalog.
func (s *MemoryStore) ClassDesignation(_ context.Context, classID string) (string, error) {
	defer observe(memoryStoreName, "class_designation", time.Now())

	s.mu.RLock()
	d, ok := s.classes[classID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("class %s: %w", classID, ErrNotFound)
	}
	return d, nil
}

// SetClassDesignation implements CatalogWriter.
func (s *MemoryStore) SetClassDesignation(_ context.Context, classID, designation string) error {
	if strings.TrimSpace(classID) == "" {
		return fmt.Errorf("%w: empty class id", ErrInvalidRecord)
	}
	s.mu.Lock()
	s.classes[classID] = designation
	s.mu.Unlock()
	return nil
}

func validateMonth(m finance.PaymentMonth) error {
	switch {
	case strings.TrimSpace(m.StudentID) == "":
		return fmt.Errorf("%w: empty student id", ErrInvalidRecord)
	case m.Month.Month < time.January || m.Month.Month > time.December:
		return fmt.Errorf("%w: month %s", ErrInvalidRecord, m.Month)
	case m.Status != finance.StatusPending && m.Status != finance.StatusPaid:
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, m.Status)
	}
	return nil
}

// observe records the latency of a store operation.
func observe(store, op string, start time.Time) {
	metrics.RecordRepositoryLatency(store, op, metrics.SinceMillis(start))
}
