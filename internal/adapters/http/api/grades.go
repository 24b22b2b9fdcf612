package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	service "github.com/okian/pauta/internal/app"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
)

// GradeDependencies defines the grade entry and staff read operations.
type GradeDependencies interface {
	EnterGrades(ctx context.Context, e service.GradeEntry) (model.TrimesterRecord, error)
	TrimesterRecord(ctx context.Context, key model.TrimesterKey) (model.TrimesterRecord, error)
	FinalRecord(ctx context.Context, key model.FinalKey) (model.FinalRecord, error)
	GradeHistory(ctx context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error)
}

// gradeRequest is the body of POST /grades. Omitted or null marks stay pending.
type gradeRequest struct {
	StudentID    string              `json:"student_id" validate:"required"`
	DisciplineID string              `json:"discipline_id" validate:"required"`
	ClassID      string              `json:"class_id" validate:"required"`
	AcademicYear string              `json:"academic_year" validate:"required"`
	Trimester    int                 `json:"trimester" validate:"min=1,max=3"`
	MAC          decimal.NullDecimal `json:"mac"`
	PP           decimal.NullDecimal `json:"pp"`
	PT           decimal.NullDecimal `json:"pt"`
	Version      int64               `json:"version" validate:"min=0"`
	Editor       string              `json:"editor" validate:"required"`
}

func (g gradeRequest) entry() service.GradeEntry {
	return service.GradeEntry{
		Key: model.TrimesterKey{
			StudentID:    g.StudentID,
			DisciplineID: g.DisciplineID,
			ClassID:      g.ClassID,
			Trimester:    g.Trimester,
			AcademicYear: g.AcademicYear,
		},
		Components: grading.Components{MAC: g.MAC, PP: g.PP, PT: g.PT},
		Version:    g.Version,
		Editor:     g.Editor,
	}
}

// yearQuery identifies a discipline year in the query string.
type yearQuery struct {
	StudentID    string `json:"student_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
}

func (q yearQuery) key() model.FinalKey {
	return model.FinalKey{
		StudentID:    q.StudentID,
		DisciplineID: q.DisciplineID,
		ClassID:      q.ClassID,
		AcademicYear: q.AcademicYear,
	}
}

// trimesterQuery identifies one trimester in the query string.
type trimesterQuery struct {
	StudentID    string `json:"student_id" validate:"required"`
	DisciplineID string `json:"discipline_id" validate:"required"`
	ClassID      string `json:"class_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Trimester    int    `json:"trimester" validate:"min=1,max=3"`
}

func yearFromQuery(r *http.Request) yearQuery {
	q := r.URL.Query()
	return yearQuery{
		StudentID:    q.Get("student_id"),
		DisciplineID: q.Get("discipline_id"),
		ClassID:      q.Get("class_id"),
		AcademicYear: q.Get("academic_year"),
	}
}

func parseYearQuery(r *http.Request) (yearQuery, error) {
	yq := yearFromQuery(r)
	return yq, validateRequest(yq)
}

func parseTrimesterQuery(r *http.Request) (model.TrimesterKey, error) {
	const op = "api.parse_trimester"
	yq := yearFromQuery(r)
	n, err := strconv.Atoi(r.URL.Query().Get("trimester"))
	if err != nil {
		return model.TrimesterKey{}, WrapKind(op, ErrBadRequest, err)
	}
	tq := trimesterQuery{
		StudentID:    yq.StudentID,
		DisciplineID: yq.DisciplineID,
		ClassID:      yq.ClassID,
		AcademicYear: yq.AcademicYear,
		Trimester:    n,
	}
	if err := validateRequest(tq); err != nil {
		return model.TrimesterKey{}, err
	}
	return yq.key().Trimester(n), nil
}

// GradesHandler handles grade entry and staff reads.
type GradesHandler struct {
	deps GradeDependencies
}

// NewGradesHandler creates a new grades handler.
func NewGradesHandler(deps GradeDependencies) *GradesHandler {
	return &GradesHandler{deps: deps}
}

// HandlePostGrades handles POST /grades requests.
func (h *GradesHandler) HandlePostGrades(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_grades"
	var req gradeRequest
	dec := sonic.ConfigStd.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rec, err := h.deps.EnterGrades(r.Context(), req.entry())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if rec.Version == 1 {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// HandleGetTrimester handles GET /grades requests.
func (h *GradesHandler) HandleGetTrimester(w http.ResponseWriter, r *http.Request) {
	key, err := parseTrimesterQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rec, err := h.deps.TrimesterRecord(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleGetFinal handles GET /grades/final requests.
func (h *GradesHandler) HandleGetFinal(w http.ResponseWriter, r *http.Request) {
	q, err := parseYearQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	fr, err := h.deps.FinalRecord(r.Context(), q.key())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fr)
}

// HandleGetHistory handles GET /grades/history requests.
func (h *GradesHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	key, err := parseTrimesterQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	events, err := h.deps.GradeHistory(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
