// Package gradeload drives a running engine with concurrent grade entries
// and checks every final it reports against a local computation.
package gradeload

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/tier"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL      string         // Base URL of the service
	Students     int            // Number of students to grade
	ClassID      string         // Class every student belongs to; must exist in the catalog
	DisciplineID string         // Discipline graded
	AcademicYear string         // Academic year graded
	Tier         tier.Tier      // Scale of ClassID, used to generate in-range marks
	Policy       grading.Policy // Final policy the server runs with
	PendingRate  float64        // Share of marks left out, in [0, 1)
	Workers      int            // Number of concurrent workers
	Timeout      time.Duration  // HTTP request timeout
	Editor       string         // Editor recorded on every entry
	Verbose      bool           // Log every mismatch
}

// Entry is one trimester submission, in the POST /grades wire shape.
type Entry struct {
	StudentID    string              `json:"student_id"`
	DisciplineID string              `json:"discipline_id"`
	ClassID      string              `json:"class_id"`
	AcademicYear string              `json:"academic_year"`
	Trimester    int                 `json:"trimester"`
	MAC          decimal.NullDecimal `json:"mac"`
	PP           decimal.NullDecimal `json:"pp"`
	PT           decimal.NullDecimal `json:"pt"`
	Version      int64               `json:"version"`
	Editor       string              `json:"editor"`
}

// Components returns the marks of the entry.
func (e Entry) Components() grading.Components {
	return grading.Components{MAC: e.MAC, PP: e.PP, PT: e.PT}
}

// Stats holds run statistics.
type Stats struct {
	EntriesGenerated int
	EntriesSubmitted int
	EntriesAccepted  int
	EntriesConflict  int
	EntriesFailed    int
	FinalsFetched    int
	FinalsMatched    int
	FinalsMismatched int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
