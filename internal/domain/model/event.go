// Package model contains domain records passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/grading"
)

// TrimesterKey identifies one student's marks in one discipline and trimester.
type TrimesterKey struct {
	StudentID    string `json:"student_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	Trimester    int    `json:"trimester" validate:"min=1,max=3"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// Validate checks that every part of the key is present.
func (k TrimesterKey) Validate() error {
	if strings.TrimSpace(k.StudentID) == "" || strings.TrimSpace(k.DisciplineID) == "" ||
		strings.TrimSpace(k.ClassID) == "" || strings.TrimSpace(k.AcademicYear) == "" {
		return fmt.Errorf("%w: missing identifier in %s", ErrInvalidKey, k)
	}
	if k.Trimester < 1 || k.Trimester > grading.TrimestersPerYear {
		return fmt.Errorf("%w: trimester %d out of range", ErrInvalidKey, k.Trimester)
	}
	return nil
}

// Final returns the year-level key this trimester belongs to.
func (k TrimesterKey) Final() FinalKey {
	return FinalKey{
		StudentID:    k.StudentID,
		DisciplineID: k.DisciplineID,
		ClassID:      k.ClassID,
		AcademicYear: k.AcademicYear,
	}
}

func (k TrimesterKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s/t%d", k.AcademicYear, k.ClassID, k.DisciplineID, k.StudentID, k.Trimester)
}

// FinalKey identifies one student's year in one discipline.
type FinalKey struct {
	StudentID    string `json:"student_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

// Trimester returns the key of trimester n within the year.
func (k FinalKey) Trimester(n int) TrimesterKey {
	return TrimesterKey{
		StudentID:    k.StudentID,
		DisciplineID: k.DisciplineID,
		ClassID:      k.ClassID,
		Trimester:    n,
		AcademicYear: k.AcademicYear,
	}
}

// Validate checks that every part of the key is present.
func (k FinalKey) Validate() error {
	return k.Trimester(1).Validate()
}

// TrimesterRecord is the stored state of a trimester. Result is derived from
// Components and never set by hand.
type TrimesterRecord struct {
	Key        TrimesterKey            `json:"key"`
	Components grading.Components      `json:"components"`
	Result     grading.TrimesterResult `json:"result"`
	// Version is 0 for a record that has never been saved.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`
}

// FinalRecord is the year-level result, derived on demand.
type FinalRecord struct {
	Key               FinalKey                                       `json:"key"`
	TrimesterAverages [grading.TrimestersPerYear]decimal.NullDecimal `json:"trimester_averages"`
	Result            grading.FinalResult                            `json:"result"`
}

// ChangeEvent is one entry of the append-only grade history.
type ChangeEvent struct {
	ID      uuid.UUID           `json:"id"`
	Key     TrimesterKey        `json:"key"`
	Field   grading.Component   `json:"field"`
	Old     decimal.NullDecimal `json:"old"`
	New     decimal.NullDecimal `json:"new"`
	Editor  string              `json:"editor"`
	At      time.Time           `json:"at"`
	Version int64               `json:"version"`
}

// Diff returns one ChangeEvent per component that differs between before and
// after. Events carry the version being written.
func Diff(key TrimesterKey, before, after grading.Components, editor string, at time.Time, version int64) []ChangeEvent {
	var events []ChangeEvent
	for _, c := range grading.AllComponents {
		oldV, newV := before.Get(c), after.Get(c)
		if sameValue(oldV, newV) {
			continue
		}
		events = append(events, ChangeEvent{
			ID:      uuid.New(),
			Key:     key,
			Field:   c,
			Old:     oldV,
			New:     newV,
			Editor:  editor,
			At:      at,
			Version: version,
		})
	}
	return events
}

func sameValue(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
