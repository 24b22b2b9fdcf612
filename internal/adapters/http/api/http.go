// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/okian/pauta/internal/adapters/repository"
	service "github.com/okian/pauta/internal/app"
	"github.com/okian/pauta/internal/domain/access"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	GradeDependencies
	AccessDependencies
	StudentDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	gradesHandler  *GradesHandler
	accessHandler  *AccessHandler
	studentHandler *StudentHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(),
		gradesHandler:  NewGradesHandler(deps),
		accessHandler:  NewAccessHandler(deps),
		studentHandler: NewStudentHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("POST /grades", MetricsMiddleware(s.gradesHandler.HandlePostGrades, "grades_enter"))
	mux.HandleFunc("GET /grades", MetricsMiddleware(s.gradesHandler.HandleGetTrimester, "grades_trimester"))
	mux.HandleFunc("GET /grades/final", MetricsMiddleware(s.gradesHandler.HandleGetFinal, "grades_final"))
	mux.HandleFunc("GET /grades/history", MetricsMiddleware(s.gradesHandler.HandleGetHistory, "grades_history"))
	mux.HandleFunc("GET /access/{student_id}", MetricsMiddleware(s.accessHandler.HandleGetAccess, "access"))
	mux.HandleFunc("GET /students/{student_id}/grades", MetricsMiddleware(s.studentHandler.HandleGetStudentGrades, "student_grades"))
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	// Decision explains a 403 on the student view.
	Decision *access.Decision `json:"decision,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigStd.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var fe *fieldErrors
	if errors.As(err, &fe) {
		resp.Fields = fe.fields
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps engine errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var blocked *service.BlockedError
	switch {
	case errors.As(err, &blocked):
		d := blocked.Decision
		writeJSON(w, http.StatusForbidden, errorResponse{
			Code:     "grades_blocked",
			Message:  d.Reason,
			Decision: &d,
		})
	case errors.Is(err, grading.ErrInvalidGradeValue):
		writeError(w, http.StatusUnprocessableEntity, "invalid_grade", err)
	case errors.Is(err, service.ErrInvalidEntry), errors.Is(err, model.ErrInvalidKey), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version_conflict", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
