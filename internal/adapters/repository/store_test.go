package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	. "github.com/smartystreets/goconvey/convey"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/pauta/internal/adapters/repository"
	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/internal/domain/tier"
)

var fixedNow = time.Date(2026, time.May, 4, 10, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func key() model.TrimesterKey {
	return model.TrimesterKey{
		StudentID:    "st-1",
		DisciplineID: "mat",
		ClassID:      "10A",
		Trimester:    1,
		AcademicYear: "2026",
	}
}

func record(mac, pp, pt string, version int64) model.TrimesterRecord {
	c := grading.Components{MAC: grading.Value(mac), PP: grading.Value(pp), PT: grading.Value(pt)}
	res, err := grading.ComputeTrimester(c, tier.Secondary)
	So(err, ShouldBeNil)
	return model.TrimesterRecord{Key: key(), Components: c, Result: res, Version: version}
}

func month(m time.Month, status finance.PaymentStatus) finance.PaymentMonth {
	return finance.PaymentMonth{
		StudentID: "st-1",
		Month:     finance.YearMonth{Year: 2026, Month: m},
		Status:    status,
		DueDate:   time.Date(2026, m, 10, 0, 0, 0, 0, time.UTC),
	}
}

func openSQLite(t *testing.T) *repository.GormStore {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	s, err := repository.NewGormStore(context.Background(), db, repository.WithClock(clock))
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	return s
}

func behavesLikeStore(ctx context.Context, s repository.Store) {
	Convey("When a trimester was never saved", func() {
		_, err := s.Fetch(ctx, key())

		Convey("Then it is not found", func() {
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("When a new trimester is saved", func() {
		saved, err := s.Save(ctx, record("12", "14", "16", 0), "prof.ana")
		So(err, ShouldBeNil)

		Convey("Then it gets version 1 and provenance", func() {
			So(saved.Version, ShouldEqual, 1)
			So(saved.UpdatedBy, ShouldEqual, "prof.ana")
			So(saved.UpdatedAt.Equal(fixedNow), ShouldBeTrue)
		})

		Convey("Then it reads back with its derived result", func() {
			got, err := s.Fetch(ctx, key())
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, 1)
			So(got.Components.PT.Decimal.String(), ShouldEqual, "16")
			So(got.Result.Status, ShouldEqual, grading.StatusGraded)
			So(got.Result.Average.Decimal.String(), ShouldEqual, "14.2")
			So(got.Result.Classification, ShouldEqual, grading.Bom)
			So(got.Result.Approved, ShouldBeTrue)
		})

		Convey("Then every entered component is in the history", func() {
			events, err := s.History(ctx, key())
			So(err, ShouldBeNil)
			So(len(events), ShouldEqual, 3)
			for _, e := range events {
				So(e.Version, ShouldEqual, 1)
				So(e.Old.Valid, ShouldBeFalse)
				So(e.Editor, ShouldEqual, "prof.ana")
			}
		})

		Convey("And it is edited from the current version", func() {
			updated, err := s.Save(ctx, record("12", "15", "16", 1), "prof.rui")
			So(err, ShouldBeNil)

			Convey("Then the version advances and only the change is logged", func() {
				So(updated.Version, ShouldEqual, 2)
				events, err := s.History(ctx, key())
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 4)
				last := events[3]
				So(last.Field, ShouldEqual, grading.PP)
				So(last.Old.Decimal.String(), ShouldEqual, "14")
				So(last.New.Decimal.String(), ShouldEqual, "15")
				So(last.Editor, ShouldEqual, "prof.rui")
				So(last.Version, ShouldEqual, 2)
			})
		})

		Convey("And it is edited from a stale version", func() {
			_, err := s.Save(ctx, record("1", "1", "1", 0), "prof.rui")

			Convey("Then the write is rejected and nothing changes", func() {
				So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)
				got, _ := s.Fetch(ctx, key())
				So(got.Version, ShouldEqual, 1)
				So(got.Components.MAC.Decimal.String(), ShouldEqual, "12")
				events, _ := s.History(ctx, key())
				So(len(events), ShouldEqual, 3)
			})
		})
	})

	Convey("When a record has an invalid key", func() {
		rec := record("12", "14", "16", 0)
		rec.Key.Trimester = 4
		_, err := s.Save(ctx, rec, "prof.ana")

		Convey("Then it is rejected", func() {
			So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidKey), ShouldBeTrue)
		})
	})

	Convey("When a payment ledger is recorded", func() {
		So(s.AddMonth(ctx, month(time.March, finance.StatusPending)), ShouldBeNil)
		So(s.AddMonth(ctx, month(time.January, finance.StatusPending)), ShouldBeNil)
		So(s.AddMonth(ctx, month(time.February, finance.StatusPaid)), ShouldBeNil)

		Convey("Then only pending months are listed, in order", func() {
			months, err := s.ListPendingMonths(ctx, "st-1")
			So(err, ShouldBeNil)
			So(len(months), ShouldEqual, 2)
			So(months[0].Month.Month, ShouldEqual, time.January)
			So(months[1].Month.Month, ShouldEqual, time.March)
			So(months[1].DueDate.Equal(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Then other students see nothing", func() {
			months, err := s.ListPendingMonths(ctx, "st-2")
			So(err, ShouldBeNil)
			So(months, ShouldBeEmpty)
		})

		Convey("Then a pending month can be paid exactly once", func() {
			jan := finance.YearMonth{Year: 2026, Month: time.January}
			So(s.MarkPaid(ctx, "st-1", jan), ShouldBeNil)
			So(errors.Is(s.MarkPaid(ctx, "st-1", jan), repository.ErrAlreadyPaid), ShouldBeTrue)

			months, _ := s.ListPendingMonths(ctx, "st-1")
			So(len(months), ShouldEqual, 1)
		})

		Convey("Then a paid month never reverts to pending", func() {
			err := s.AddMonth(ctx, month(time.February, finance.StatusPending))
			So(errors.Is(err, repository.ErrAlreadyPaid), ShouldBeTrue)
		})

		Convey("Then paying an unknown month is not found", func() {
			err := s.MarkPaid(ctx, "st-1", finance.YearMonth{Year: 2025, Month: time.June})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("When a malformed month is recorded", func() {
		m := month(time.March, finance.StatusPending)
		m.StudentID = ""

		Convey("Then it is rejected", func() {
			So(errors.Is(s.AddMonth(ctx, m), repository.ErrInvalidRecord), ShouldBeTrue)
		})
	})

	Convey("When a class is registered", func() {
		So(s.SetClassDesignation(ctx, "10A", "10ª Classe A"), ShouldBeNil)

		Convey("Then its designation resolves", func() {
			d, err := s.ClassDesignation(ctx, "10A")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, "10ª Classe A")
		})

		Convey("Then unknown classes are not found", func() {
			_, err := s.ClassDesignation(ctx, "99Z")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s := repository.NewMemoryStore(repository.WithClock(clock))
		behavesLikeStore(context.Background(), s)
	})

	Convey("Given concurrent first saves of the same trimester", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(repository.WithClock(clock))
		rec := record("12", "14", "16", 0)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok        int
			conflicts int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, rec, "prof")
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if errors.Is(err, repository.ErrVersionConflict) {
					conflicts++
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly one wins and the rest conflict", func() {
			So(ok, ShouldEqual, 1)
			So(conflicts, ShouldEqual, 15)
			events, _ := s.History(ctx, key())
			So(len(events), ShouldEqual, 3)
		})
	})
}

func TestGormStore(t *testing.T) {
	Convey("Given a gorm store on SQLite", t, func() {
		s := openSQLite(t)
		Reset(func() { _ = s.Close() })
		behavesLikeStore(context.Background(), s)
	})
}
