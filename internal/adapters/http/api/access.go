package api

import (
	"context"
	"net/http"
	"strings"

	service "github.com/okian/pauta/internal/app"
	"github.com/okian/pauta/internal/domain/access"
	"github.com/okian/pauta/internal/domain/model"
)

// AccessDependencies defines the visibility check.
type AccessDependencies interface {
	CanViewGrades(ctx context.Context, studentID string) access.Decision
}

// StudentDependencies defines the gated student view.
type StudentDependencies interface {
	StudentGrades(ctx context.Context, key model.FinalKey) (service.StudentView, error)
}

// AccessHandler handles access check requests.
type AccessHandler struct {
	deps AccessDependencies
}

// NewAccessHandler creates a new access handler.
func NewAccessHandler(deps AccessDependencies) *AccessHandler {
	return &AccessHandler{deps: deps}
}

// HandleGetAccess handles GET /access/{student_id} requests.
func (h *AccessHandler) HandleGetAccess(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("student_id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.CanViewGrades(r.Context(), id))
}

// StudentHandler serves the student's own grades.
type StudentHandler struct {
	deps StudentDependencies
}

// NewStudentHandler creates a new student handler.
func NewStudentHandler(deps StudentDependencies) *StudentHandler {
	return &StudentHandler{deps: deps}
}

// HandleGetStudentGrades handles GET /students/{student_id}/grades requests.
// The discipline is chosen with discipline_id, class_id and academic_year.
func (h *StudentHandler) HandleGetStudentGrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	yq := yearQuery{
		StudentID:    strings.TrimSpace(r.PathValue("student_id")),
		DisciplineID: q.Get("discipline_id"),
		ClassID:      q.Get("class_id"),
		AcademicYear: q.Get("academic_year"),
	}
	if err := validateRequest(yq); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := h.deps.StudentGrades(r.Context(), yq.key())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
