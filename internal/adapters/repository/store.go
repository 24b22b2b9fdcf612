// Package repository stores grade records, payment ledgers and the class
// catalog, and defines the interfaces the engine reads them through.
package repository

import (
	"context"

	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/model"
)

// GradeRepository provides read/write access to trimester records.
type GradeRepository interface {
	// Fetch returns the stored record. Returns ErrNotFound if none exists.
	Fetch(ctx context.Context, key model.TrimesterKey) (model.TrimesterRecord, error)
	// Save writes rec if rec.Version matches the stored version (0 for a new
	// record) and returns it with the new version. A mismatch returns
	// ErrVersionConflict and writes nothing. Changed components are appended
	// to the history attributed to editor.
	Save(ctx context.Context, rec model.TrimesterRecord, editor string) (model.TrimesterRecord, error)
	// History returns the change events of key, oldest first.
	History(ctx context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error)
}

// FinanceRepository is the read side of the payment ledger.
type FinanceRepository interface {
	// ListPendingMonths returns the student's unpaid months in month order.
	ListPendingMonths(ctx context.Context, studentID string) ([]finance.PaymentMonth, error)
}

// FinanceLedger adds the write side of the payment ledger.
type FinanceLedger interface {
	FinanceRepository
	// AddMonth records a billed month. A paid month cannot be reset to pending.
	AddMonth(ctx context.Context, m finance.PaymentMonth) error
	// MarkPaid settles a pending month. Returns ErrAlreadyPaid if it is settled.
	MarkPaid(ctx context.Context, studentID string, month finance.YearMonth) error
}

// AcademicCatalog resolves a class to its designation label.
type AcademicCatalog interface {
	// ClassDesignation returns the label, e.g. "7ª Classe A". ErrNotFound if unknown.
	ClassDesignation(ctx context.Context, classID string) (string, error)
}

// CatalogWriter registers class designations.
type CatalogWriter interface {
	AcademicCatalog
	SetClassDesignation(ctx context.Context, classID, designation string) error
}

// Store bundles every repository a single backend provides.
type Store interface {
	GradeRepository
	FinanceLedger
	CatalogWriter
	Close() error
}
