package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/pauta/internal/domain/access"
)

// Sentinel kinds for service errors.
var (
	ErrGradesBlocked = errors.New("grades blocked by overdue payments")
	ErrInvalidEntry  = errors.New("invalid grade entry")
)

// BlockedError carries the access decision that hid a student's grades.
type BlockedError struct {
	Decision access.Decision
}

func (e *BlockedError) Error() string {
	months := make([]string, len(e.Decision.OverdueMonths))
	for i, m := range e.Decision.OverdueMonths {
		months[i] = m.String()
	}
	return fmt.Sprintf("%s: %s", ErrGradesBlocked, strings.Join(months, ", "))
}

// Is reports whether target is ErrGradesBlocked.
func (e *BlockedError) Is(target error) bool { return target == ErrGradesBlocked }
