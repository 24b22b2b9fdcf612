package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/pkg/logger"
	"github.com/okian/pauta/pkg/metrics"
)

const gormStoreName = "gorm"

type gradeRow struct {
	StudentID      string              `gorm:"column:student_id;primaryKey;size:64"`
	DisciplineID   string              `gorm:"column:discipline_id;primaryKey;size:64"`
	ClassID        string              `gorm:"column:class_id;primaryKey;size:64"`
	Trimester      int                 `gorm:"column:trimester;primaryKey"`
	AcademicYear   string              `gorm:"column:academic_year;primaryKey;size:16"`
	MAC            decimal.NullDecimal `gorm:"column:mac;type:numeric(6,2)"`
	PP             decimal.NullDecimal `gorm:"column:pp;type:numeric(6,2)"`
	PT             decimal.NullDecimal `gorm:"column:pt;type:numeric(6,2)"`
	Status         string              `gorm:"column:status;size:16;not null"`
	Average        decimal.NullDecimal `gorm:"column:average;type:numeric(6,2)"`
	Classification string              `gorm:"column:classification;size:32"`
	Approved       bool                `gorm:"column:approved;not null"`
	Version        int64               `gorm:"column:version;not null"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime:false"`
	UpdatedBy      string              `gorm:"column:updated_by;size:128"`
}

func (gradeRow) TableName() string { return "trimester_grades" }

type changeEventRow struct {
	ID           string              `gorm:"column:id;primaryKey;size:36"`
	StudentID    string              `gorm:"column:student_id;size:64;index:idx_grade_history_key"`
	DisciplineID string              `gorm:"column:discipline_id;size:64;index:idx_grade_history_key"`
	ClassID      string              `gorm:"column:class_id;size:64;index:idx_grade_history_key"`
	Trimester    int                 `gorm:"column:trimester;index:idx_grade_history_key"`
	AcademicYear string              `gorm:"column:academic_year;size:16;index:idx_grade_history_key"`
	Field        string              `gorm:"column:field;size:8;not null"`
	OldValue     decimal.NullDecimal `gorm:"column:old_value;type:numeric(6,2)"`
	NewValue     decimal.NullDecimal `gorm:"column:new_value;type:numeric(6,2)"`
	Editor       string              `gorm:"column:editor;size:128"`
	At           time.Time           `gorm:"column:at;not null"`
	Version      int64               `gorm:"column:version;not null"`
}

func (changeEventRow) TableName() string { return "grade_history" }

type paymentRow struct {
	StudentID string    `gorm:"column:student_id;primaryKey;size:64"`
	Year      int       `gorm:"column:year;primaryKey"`
	Month     int       `gorm:"column:month;primaryKey"`
	Status    string    `gorm:"column:status;size:16;not null"`
	DueDate   time.Time `gorm:"column:due_date"`
}

func (paymentRow) TableName() string { return "payment_months" }

type classRow struct {
	ClassID     string `gorm:"column:class_id;primaryKey;size:64"`
	Designation string `gorm:"column:designation;size:128;not null"`
}

func (classRow) TableName() string { return "classes" }

// GormStore persists every repository in a SQL database through gorm.
type GormStore struct {
	db   *gorm.DB
	opts storeOptions
}

var _ Store = (*GormStore)(nil)

// OpenPostgres connects to PostgreSQL and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewGormStore(ctx, db, opts...)
}

// NewGormStore wraps an open connection and migrates the schema.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...Option) (*GormStore, error) {
	s := &GormStore{db: db, opts: newStoreOptions(opts)}
	if err := db.WithContext(ctx).AutoMigrate(&gradeRow{}, &changeEventRow{}, &paymentRow{}, &classRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const keyWhere = "student_id = ? AND discipline_id = ? AND class_id = ? AND trimester = ? AND academic_year = ?"

func keyArgs(k model.TrimesterKey) []any {
	return []any{k.StudentID, k.DisciplineID, k.ClassID, k.Trimester, k.AcademicYear}
}

// Fetch implements GradeRepository.
func (s *GormStore) Fetch(ctx context.Context, key model.TrimesterKey) (model.TrimesterRecord, error) {
	defer observe(gormStoreName, "fetch", time.Now())

	var row gradeRow
	err := s.db.WithContext(ctx).Where(keyWhere, keyArgs(key)...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.TrimesterRecord{}, fmt.Errorf("trimester %s: %w", key, ErrNotFound)
	}
	if err != nil {
		metrics.RecordRepositoryError(gormStoreName, "fetch")
		return model.TrimesterRecord{}, fmt.Errorf("fetch trimester %s: %w", key, err)
	}
	return row.record(), nil
}

// Save implements GradeRepository.
func (s *GormStore) Save(ctx context.Context, rec model.TrimesterRecord, editor string) (model.TrimesterRecord, error) {
	defer observe(gormStoreName, "save", time.Now())

	if err := rec.Key.Validate(); err != nil {
		return model.TrimesterRecord{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}

	var saved model.TrimesterRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur gradeRow
		err := tx.Where(keyWhere, keyArgs(rec.Key)...).Take(&cur).Error
		exists := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		stored := int64(0)
		if exists {
			stored = cur.Version
		}
		if rec.Version != stored {
			return fmt.Errorf("trimester %s: have version %d, stored %d: %w", rec.Key, rec.Version, stored, ErrVersionConflict)
		}

		now := s.opts.now().UTC()
		next := rec
		next.Version = stored + 1
		next.UpdatedAt = now
		next.UpdatedBy = editor
		row := toGradeRow(next)

		if exists {
			res := tx.Model(&gradeRow{}).
				Where(keyWhere+" AND version = ?", append(keyArgs(rec.Key), stored)...).
				Updates(map[string]any{
					"mac":            row.MAC,
					"pp":             row.PP,
					"pt":             row.PT,
					"status":         row.Status,
					"average":        row.Average,
					"classification": row.Classification,
					"approved":       row.Approved,
					"version":        row.Version,
					"updated_at":     row.UpdatedAt,
					"updated_by":     row.UpdatedBy,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("trimester %s: concurrent update: %w", rec.Key, ErrVersionConflict)
			}
		} else if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("trimester %s: concurrent create: %w", rec.Key, ErrVersionConflict)
			}
			return err
		}

		before := grading.Components{}
		if exists {
			before = cur.record().Components
		}
		events := model.Diff(rec.Key, before, next.Components, editor, now, next.Version)
		if len(events) > 0 {
			rows := make([]changeEventRow, len(events))
			for i, e := range events {
				rows[i] = toChangeEventRow(e)
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
		}
		metrics.RecordHistoryEvents(len(events))
		saved = next
		return nil
	})
	if errors.Is(err, ErrVersionConflict) {
		metrics.RecordVersionConflict()
		s.opts.log.Warn(ctx, "grade save rejected, stale version",
			logger.String("key", rec.Key.String()),
			logger.Error(err),
		)
		return model.TrimesterRecord{}, err
	}
	if err != nil {
		metrics.RecordRepositoryError(gormStoreName, "save")
		return model.TrimesterRecord{}, fmt.Errorf("save trimester %s: %w", rec.Key, err)
	}
	return saved, nil
}

// History implements GradeRepository.
func (s *GormStore) History(ctx context.Context, key model.TrimesterKey) ([]model.ChangeEvent, error) {
	defer observe(gormStoreName, "history", time.Now())

	var rows []changeEventRow
	err := s.db.WithContext(ctx).
		Where(keyWhere, keyArgs(key)...).
		Order("version ASC").Order("field ASC").
		Find(&rows).Error
	if err != nil {
		metrics.RecordRepositoryError(gormStoreName, "history")
		return nil, fmt.Errorf("history %s: %w", key, err)
	}
	out := make([]model.ChangeEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.event())
	}
	return out, nil
}

// ListPendingMonths implements FinanceRepository.
func (s *GormStore) ListPendingMonths(ctx context.Context, studentID string) ([]finance.PaymentMonth, error) {
	defer observe(gormStoreName, "list_pending", time.Now())

	var rows []paymentRow
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, string(finance.StatusPending)).
		Order("year ASC").Order("month ASC").
		Find(&rows).Error
	if err != nil {
		metrics.RecordRepositoryError(gormStoreName, "list_pending")
		return nil, fmt.Errorf("list pending months of %s: %w", studentID, err)
	}
	out := make([]finance.PaymentMonth, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.month())
	}
	return out, nil
}

// AddMonth implements FinanceLedger.
func (s *GormStore) AddMonth(ctx context.Context, m finance.PaymentMonth) error {
	defer observe(gormStoreName, "add_month", time.Now())

	if err := validateMonth(m); err != nil {
		return err
	}
	row := toPaymentRow(m)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var prev paymentRow
		err := tx.Where("student_id = ? AND year = ? AND month = ?", row.StudentID, row.Year, row.Month).Take(&prev).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&row).Error
		case err != nil:
			metrics.RecordRepositoryError(gormStoreName, "add_month")
			return err
		case prev.Status == string(finance.StatusPaid) && row.Status != string(finance.StatusPaid):
			return fmt.Errorf("student %s month %s: %w", m.StudentID, m.Month, ErrAlreadyPaid)
		}
		return tx.Save(&row).Error
	})
}

// MarkPaid implements FinanceLedger.
func (s *GormStore) MarkPaid(ctx context.Context, studentID string, month finance.YearMonth) error {
	defer observe(gormStoreName, "mark_paid", time.Now())

	res := s.db.WithContext(ctx).Model(&paymentRow{}).
		Where("student_id = ? AND year = ? AND month = ? AND status = ?",
			studentID, month.Year, int(month.Month), string(finance.StatusPending)).
		Update("status", string(finance.StatusPaid))
	if res.Error != nil {
		metrics.RecordRepositoryError(gormStoreName, "mark_paid")
		return fmt.Errorf("mark paid %s %s: %w", studentID, month, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&paymentRow{}).
		Where("student_id = ? AND year = ? AND month = ?", studentID, month.Year, int(month.Month)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("mark paid %s %s: %w", studentID, month, err)
	}
	if count == 0 {
		return fmt.Errorf("student %s month %s: %w", studentID, month, ErrNotFound)
	}
	return fmt.Errorf("student %s month %s: %w", studentID, month, ErrAlreadyPaid)
}

// ClassDesignation implements AcademicCatalog.
func (s *GormStore) ClassDesignation(ctx context.Context, classID string) (string, error) {
	defer observe(gormStoreName, "class_designation", time.Now())

	var row classRow
	err := s.db.WithContext(ctx).Where("class_id = ?", classID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("class %s: %w", classID, ErrNotFound)
	}
	if err != nil {
		metrics.RecordRepositoryError(gormStoreName, "class_designation")
		return "", fmt.Errorf("class %s: %w", classID, err)
	}
	return row.Designation, nil
}

// SetClassDesignation implements CatalogWriter.
func (s *GormStore) SetClassDesignation(ctx context.Context, classID, designation string) error {
	if strings.TrimSpace(classID) == "" {
		return fmt.Errorf("%w: empty class id", ErrInvalidRecord)
	}
	return s.db.WithContext(ctx).Save(&classRow{ClassID: classID, Designation: designation}).Error
}

func toGradeRow(r model.TrimesterRecord) gradeRow {
	return gradeRow{
		StudentID:      r.Key.StudentID,
		DisciplineID:   r.Key.DisciplineID,
		ClassID:        r.Key.ClassID,
		Trimester:      r.Key.Trimester,
		AcademicYear:   r.Key.AcademicYear,
		MAC:            r.Components.MAC,
		PP:             r.Components.PP,
		PT:             r.Components.PT,
		Status:         string(r.Result.Status),
		Average:        r.Result.Average,
		Classification: string(r.Result.Classification),
		Approved:       r.Result.Approved,
		Version:        r.Version,
		UpdatedAt:      r.UpdatedAt,
		UpdatedBy:      r.UpdatedBy,
	}
}

func (r gradeRow) key() model.TrimesterKey {
	return model.TrimesterKey{
		StudentID:    r.StudentID,
		DisciplineID: r.DisciplineID,
		ClassID:      r.ClassID,
		Trimester:    r.Trimester,
		AcademicYear: r.AcademicYear,
	}
}

func (r gradeRow) record() model.TrimesterRecord {
	return model.TrimesterRecord{
		Key:        r.key(),
		Components: grading.Components{MAC: r.MAC, PP: r.PP, PT: r.PT},
		Result: grading.TrimesterResult{
			Status:         grading.Status(r.Status),
			Average:        r.Average,
			Classification: grading.Classification(r.Classification),
			Approved:       r.Approved,
		},
		Version:   r.Version,
		UpdatedAt: r.UpdatedAt.UTC(),
		UpdatedBy: r.UpdatedBy,
	}
}

func toChangeEventRow(e model.ChangeEvent) changeEventRow {
	return changeEventRow{
		ID:           e.ID.String(),
		StudentID:    e.Key.StudentID,
		DisciplineID: e.Key.DisciplineID,
		ClassID:      e.Key.ClassID,
		Trimester:    e.Key.Trimester,
		AcademicYear: e.Key.AcademicYear,
		Field:        string(e.Field),
		OldValue:     e.Old,
		NewValue:     e.New,
		Editor:       e.Editor,
		At:           e.At,
		Version:      e.Version,
	}
}

func (r changeEventRow) event() model.ChangeEvent {
	id, _ := uuid.Parse(r.ID)
	return model.ChangeEvent{
		ID: id,
		Key: model.TrimesterKey{
			StudentID:    r.StudentID,
			DisciplineID: r.DisciplineID,
			ClassID:      r.ClassID,
			Trimester:    r.Trimester,
			AcademicYear: r.AcademicYear,
		},
		Field:   grading.Component(r.Field),
		Old:     r.OldValue,
		New:     r.NewValue,
		Editor:  r.Editor,
		At:      r.At.UTC(),
		Version: r.Version,
	}
}

func toPaymentRow(m finance.PaymentMonth) paymentRow {
	return paymentRow{
		StudentID: m.StudentID,
		Year:      m.Month.Year,
		Month:     int(m.Month.Month),
		Status:    string(m.Status),
		DueDate:   m.DueDate.UTC(),
	}
}

func (r paymentRow) month() finance.PaymentMonth {
	return finance.PaymentMonth{
		StudentID: r.StudentID,
		Month:     finance.YearMonth{Year: r.Year, Month: time.Month(r.Month)},
		Status:    finance.PaymentStatus(r.Status),
		DueDate:   r.DueDate.UTC(),
	}
}
