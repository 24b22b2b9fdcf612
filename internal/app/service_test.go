package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/pauta/internal/adapters/repository"
	service "github.com/okian/pauta/internal/app"
	"github.com/okian/pauta/internal/domain/finance"
	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/internal/domain/tier"
	"github.com/okian/pauta/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var today = time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return today }

func marks(mac, pp, pt string) grading.Components {
	c := grading.Components{}
	if mac != "" {
		c.MAC = grading.Value(mac)
	}
	if pp != "" {
		c.PP = grading.Value(pp)
	}
	if pt != "" {
		c.PT = grading.Value(pt)
	}
	return c
}

func yearKey(classID string) model.FinalKey {
	return model.FinalKey{StudentID: "st-1", DisciplineID: "mat", ClassID: classID, AcademicYear: "2026"}
}

func owed(m time.Month) finance.PaymentMonth {
	return finance.PaymentMonth{
		StudentID: "st-1",
		Month:     finance.YearMonth{Year: 2026, Month: m},
		Status:    finance.StatusPending,
		DueDate:   time.Date(2026, m, 10, 0, 0, 0, 0, time.UTC),
	}
}

func newFixture(opts ...service.Option) (*service.Service, *repository.MemoryStore) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	So(store.SetClassDesignation(ctx, "10A", "10ª Classe A"), ShouldBeNil)
	So(store.SetClassDesignation(ctx, "3B", "3ª Classe B"), ShouldBeNil)
	So(store.SetClassDesignation(ctx, "EX", "Turma Especial"), ShouldBeNil)
	opts = append([]service.Option{service.WithStore(store), service.WithClock(clock)}, opts...)
	return service.New(opts...), store
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it uses the lenient policy and answers queries", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Policy(), ShouldEqual, grading.PolicyLenient)
			So(svc.CanViewGrades(context.Background(), "nobody").Allowed, ShouldBeTrue)
		})
	})
}

func TestService_Compute(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc, _ := newFixture()

		Convey("When a trimester is computed directly", func() {
			res, err := svc.ComputeTrimester(ctx, marks("12", "14", "16"), tier.Secondary)

			Convey("Then the domain result is returned", func() {
				So(err, ShouldBeNil)
				So(res.Average.Decimal.String(), ShouldEqual, "14.2")
			})
		})

		Convey("When a mark is out of range", func() {
			_, err := svc.ComputeTrimester(ctx, marks("11", "1", "1"), tier.Primary)

			Convey("Then the rejection is surfaced", func() {
				So(errors.Is(err, grading.ErrInvalidGradeValue), ShouldBeTrue)
			})
		})

		Convey("When a final is computed with one trimester", func() {
			res := svc.ComputeFinal(ctx, []decimal.NullDecimal{grading.Value("12"), {}, {}}, tier.Secondary)

			Convey("Then the lenient mean is that trimester", func() {
				So(res.Status, ShouldEqual, grading.StatusGraded)
				So(res.Average.Decimal.String(), ShouldEqual, "12")
			})
		})

		Convey("When a ledger is evaluated", func() {
			st := svc.EvaluateDelinquency(ctx, []finance.PaymentMonth{owed(time.February), owed(time.March)}, today)

			Convey("Then the evaluator result is returned", func() {
				So(st.InContencioso, ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with the strict policy", t, func() {
		svc, _ := newFixture(service.WithFinalPolicy(grading.PolicyStrict))

		Convey("Then a missing trimester keeps the final pending", func() {
			res := svc.ComputeFinal(context.Background(), []decimal.NullDecimal{grading.Value("12"), grading.Value("14"), {}}, tier.Secondary)
			So(res.Status, ShouldEqual, grading.StatusPending)
		})
	})
}

func TestService_EnterGrades(t *testing.T) {
	Convey("Given a service with registered classes", t, func() {
		ctx := context.Background()
		svc, store := newFixture()
		key := yearKey("10A").Trimester(1)

		Convey("When complete marks are entered", func() {
			rec, err := svc.EnterGrades(ctx, service.GradeEntry{Key: key, Components: marks("12", "14", "16"), Editor: "prof.ana"})

			Convey("Then the derived result is stored with a version", func() {
				So(err, ShouldBeNil)
				So(rec.Version, ShouldEqual, 1)
				So(rec.Result.Classification, ShouldEqual, grading.Bom)

				got, err := svc.TrimesterRecord(ctx, key)
				So(err, ShouldBeNil)
				So(got.Result.Average.Decimal.String(), ShouldEqual, "14.2")
			})

			Convey("Then the history shows who entered each mark", func() {
				events, err := svc.GradeHistory(ctx, key)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 3)
				So(events[0].Editor, ShouldEqual, "prof.ana")
			})

			Convey("And a second editor writes from the same version", func() {
				_, err := svc.EnterGrades(ctx, service.GradeEntry{Key: key, Components: marks("1", "1", "1"), Editor: "prof.rui"})

				Convey("Then the stale write is rejected", func() {
					So(errors.Is(err, repository.ErrVersionConflict), ShouldBeTrue)
				})
			})
		})

		Convey("When a mark is missing", func() {
			rec, err := svc.EnterGrades(ctx, service.GradeEntry{Key: key, Components: marks("12", "", "16"), Editor: "prof.ana"})

			Convey("Then the record is stored as pending", func() {
				So(err, ShouldBeNil)
				So(rec.Result.Status, ShouldEqual, grading.StatusPending)
			})
		})

		Convey("When a primary class receives a secondary-scale mark", func() {
			_, err := svc.EnterGrades(ctx, service.GradeEntry{
				Key: yearKey("3B").Trimester(1), Components: marks("12", "8", "8"), Editor: "prof.ana",
			})

			Convey("Then it is rejected and nothing is stored", func() {
				So(errors.Is(err, grading.ErrInvalidGradeValue), ShouldBeTrue)
				_, err := svc.TrimesterRecord(ctx, yearKey("3B").Trimester(1))
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the student is in contencioso", func() {
			So(store.AddMonth(ctx, owed(time.February)), ShouldBeNil)
			So(store.AddMonth(ctx, owed(time.March)), ShouldBeNil)
			_, err := svc.EnterGrades(ctx, service.GradeEntry{Key: key, Components: marks("12", "14", "16"), Editor: "prof.ana"})

			Convey("Then grade entry is still accepted", func() {
				So(err, ShouldBeNil)
			})
		})

		Convey("When the entry is malformed", func() {
			bad := key
			bad.Trimester = 0
			_, errKey := svc.EnterGrades(ctx, service.GradeEntry{Key: bad, Components: marks("1", "1", "1"), Editor: "prof"})
			_, errEditor := svc.EnterGrades(ctx, service.GradeEntry{Key: key, Components: marks("1", "1", "1")})
			unknown := key
			unknown.ClassID = "ZZ"
			_, errClass := svc.EnterGrades(ctx, service.GradeEntry{Key: unknown, Components: marks("1", "1", "1"), Editor: "prof"})

			Convey("Then it is rejected", func() {
				So(errors.Is(errKey, service.ErrInvalidEntry), ShouldBeTrue)
				So(errors.Is(errEditor, service.ErrInvalidEntry), ShouldBeTrue)
				So(errors.Is(errClass, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an unrecognized class label is used", func() {
			_, err := svc.EnterGrades(ctx, service.GradeEntry{
				Key: yearKey("EX").Trimester(1), Components: marks("18", "18", "18"), Editor: "prof",
			})

			Convey("Then the secondary scale applies", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_FinalAndStudentView(t *testing.T) {
	Convey("Given two graded trimesters and one pending", t, func() {
		ctx := context.Background()
		svc, store := newFixture()
		fk := yearKey("10A")
		enter := func(n int, c grading.Components) {
			_, err := svc.EnterGrades(ctx, service.GradeEntry{Key: fk.Trimester(n), Components: c, Editor: "prof"})
			So(err, ShouldBeNil)
		}
		enter(1, marks("12", "14", "16")) // 14.2
		enter(2, marks("10", "10", "10")) // 10
		enter(3, marks("15", "", ""))

		Convey("When the final record is derived", func() {
			fr, err := svc.FinalRecord(ctx, fk)

			Convey("Then the pending trimester is excluded from the mean", func() {
				So(err, ShouldBeNil)
				So(fr.TrimesterAverages[2].Valid, ShouldBeFalse)
				So(fr.Result.Present, ShouldEqual, 2)
				So(fr.Result.Average.Decimal.Equal(decimal.RequireFromString("12.1")), ShouldBeTrue)
				So(fr.Result.Classification, ShouldEqual, grading.Suficiente)
			})
		})

		Convey("When the student is up to date", func() {
			view, err := svc.StudentGrades(ctx, fk)

			Convey("Then the grades are shown", func() {
				So(err, ShouldBeNil)
				So(view.Decision.Allowed, ShouldBeTrue)
				So(len(view.Trimesters), ShouldEqual, 3)
				So(view.Final, ShouldNotBeNil)
			})
		})

		Convey("When the student owes two past months", func() {
			So(store.AddMonth(ctx, owed(time.February)), ShouldBeNil)
			So(store.AddMonth(ctx, owed(time.March)), ShouldBeNil)
			view, err := svc.StudentGrades(ctx, fk)

			Convey("Then the grades are blocked with the overdue months", func() {
				So(errors.Is(err, service.ErrGradesBlocked), ShouldBeTrue)
				var blocked *service.BlockedError
				So(errors.As(err, &blocked), ShouldBeTrue)
				So(len(blocked.Decision.OverdueMonths), ShouldEqual, 2)
				So(err.Error(), ShouldContainSubstring, "2026-02, 2026-03")
				So(view.Trimesters, ShouldBeEmpty)
				So(view.Final, ShouldBeNil)
			})

			Convey("Then staff reads are not gated", func() {
				fr, err := svc.FinalRecord(ctx, fk)
				So(err, ShouldBeNil)
				So(fr.Result.Status, ShouldEqual, grading.StatusGraded)
			})

			Convey("And one month is paid", func() {
				So(store.MarkPaid(ctx, "st-1", finance.YearMonth{Year: 2026, Month: time.February}), ShouldBeNil)

				Convey("Then access is restored", func() {
					_, err := svc.StudentGrades(ctx, fk)
					So(err, ShouldBeNil)
				})
			})
		})
	})

	Convey("Given a discipline with no entries", t, func() {
		svc, _ := newFixture()
		fr, err := svc.FinalRecord(context.Background(), yearKey("10A"))

		Convey("Then the final is pending, not an error", func() {
			So(err, ShouldBeNil)
			So(fr.Result.Status, ShouldEqual, grading.StatusPending)
			So(fr.Result.Average.Valid, ShouldBeFalse)
		})
	})
}
