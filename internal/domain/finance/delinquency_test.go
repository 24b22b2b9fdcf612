package finance_test

import (
	"testing"
	"time"

	"github.com/okian/pauta/internal/domain/finance"
	. "github.com/smartystreets/goconvey/convey"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func pending(y int, m time.Month, dueDay int) finance.PaymentMonth {
	return finance.PaymentMonth{
		StudentID: "st-1",
		Month:     finance.YearMonth{Year: y, Month: m},
		Status:    finance.StatusPending,
		DueDate:   date(y, m, dueDay),
	}
}

func paid(y int, m time.Month, dueDay int) finance.PaymentMonth {
	p := pending(y, m, dueDay)
	p.Status = finance.StatusPaid
	return p
}

func TestEvaluator(t *testing.T) {
	Convey("Given an evaluator with threshold 2 and a 5 day grace period", t, func() {
		ev := finance.NewEvaluator()
		today := date(2026, time.April, 20)

		Convey("When three months are overdue, listed out of order", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.March, 10),
				pending(2026, time.January, 10),
				pending(2026, time.February, 10),
			}, today)

			Convey("Then the student is in contencioso and grades are hidden", func() {
				So(st.InContencioso, ShouldBeTrue)
				So(st.GradesVisible, ShouldBeFalse)
				So(st.DaysRemaining, ShouldEqual, 0)
				So(st.State(), ShouldEqual, finance.StateContencioso)
			})

			Convey("Then the overdue months are chronological", func() {
				So(st.OverdueMonths, ShouldResemble, []finance.YearMonth{
					{Year: 2026, Month: time.January},
					{Year: 2026, Month: time.February},
					{Year: 2026, Month: time.March},
				})
			})
		})

		Convey("When exactly the threshold is reached", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.February, 10),
				pending(2026, time.March, 10),
			}, today)

			Convey("Then the boundary blocks", func() {
				So(st.InContencioso, ShouldBeTrue)
				So(len(st.OverdueMonths), ShouldEqual, 2)
			})
		})

		Convey("When one month is overdue", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.March, 10)}, today)

			Convey("Then grades stay visible", func() {
				So(st.InContencioso, ShouldBeFalse)
				So(st.GradesVisible, ShouldBeTrue)
				So(st.State(), ShouldEqual, finance.StateOverdue)
			})
		})

		Convey("When paid months are mixed in", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				paid(2026, time.January, 10),
				paid(2026, time.February, 10),
				pending(2026, time.March, 10),
			}, today)

			Convey("Then only pending months count", func() {
				So(st.OverdueMonths, ShouldResemble, []finance.YearMonth{{Year: 2026, Month: time.March}})
				So(st.InContencioso, ShouldBeFalse)
			})
		})

		Convey("When the due date is today", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.April, 20)}, today)

			Convey("Then the month is not overdue yet", func() {
				So(len(st.OverdueMonths), ShouldEqual, 0)
				So(st.DaysRemaining, ShouldEqual, 5)
			})
		})

		Convey("When nothing is overdue and the current month is pending ahead of its due date", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.April, 25)}, today)

			Convey("Then the full grace period remains", func() {
				So(st.InContencioso, ShouldBeFalse)
				So(st.DaysRemaining, ShouldEqual, 5)
				So(st.State(), ShouldEqual, finance.StateGrace)
			})
		})

		Convey("When the current month is the sole pending month and two days past due", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.April, 18)}, today)

			Convey("Then the countdown shows three days", func() {
				So(st.DaysRemaining, ShouldEqual, 3)
				So(st.GradesVisible, ShouldBeTrue)
			})
		})

		Convey("When the current month is long past due", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.April, 1)}, today)

			Convey("Then the countdown floors at zero", func() {
				So(st.DaysRemaining, ShouldEqual, 0)
			})
		})

		Convey("When an earlier month is also pending", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.March, 10),
				pending(2026, time.April, 25),
			}, today)

			Convey("Then no countdown is shown", func() {
				So(st.DaysRemaining, ShouldEqual, 0)
			})
		})

		Convey("When future months are billed in advance", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.April, 25),
				pending(2026, time.May, 25),
				pending(2026, time.June, 25),
			}, today)

			Convey("Then they do not cancel the current month countdown", func() {
				So(st.DaysRemaining, ShouldEqual, 5)
				So(len(st.OverdueMonths), ShouldEqual, 0)
			})
		})

		Convey("When every month is paid", func() {
			st := ev.Evaluate([]finance.PaymentMonth{paid(2026, time.April, 10)}, today)

			Convey("Then the status is clear", func() {
				So(st.DaysRemaining, ShouldEqual, 0)
				So(st.State(), ShouldEqual, finance.StateClear)
			})
		})

		Convey("When payment data is missing", func() {
			st := ev.Evaluate(nil, today)
			undated := ev.Evaluate([]finance.PaymentMonth{{
				StudentID: "st-1",
				Month:     finance.YearMonth{Year: 2026, Month: time.January},
				Status:    finance.StatusPending,
			}}, today)

			Convey("Then the evaluation fails open", func() {
				So(st.InContencioso, ShouldBeFalse)
				So(st.GradesVisible, ShouldBeTrue)
				So(len(st.OverdueMonths), ShouldEqual, 0)
				So(undated.GradesVisible, ShouldBeTrue)
				So(len(undated.OverdueMonths), ShouldEqual, 0)
			})
		})

		Convey("When the same month appears twice", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.March, 10),
				pending(2026, time.March, 10),
			}, today)

			Convey("Then it counts once", func() {
				So(len(st.OverdueMonths), ShouldEqual, 1)
				So(st.InContencioso, ShouldBeFalse)
			})
		})
	})

	Convey("Given a configured evaluator", t, func() {
		ev := finance.NewEvaluator(
			finance.WithContenciosoThreshold(3),
			finance.WithGracePeriodDays(10),
		)
		today := date(2026, time.April, 20)

		Convey("Then the configured threshold applies", func() {
			st := ev.Evaluate([]finance.PaymentMonth{
				pending(2026, time.February, 10),
				pending(2026, time.March, 10),
			}, today)
			So(st.InContencioso, ShouldBeFalse)
			So(ev.ContenciosoThreshold(), ShouldEqual, 3)
		})

		Convey("Then the configured grace period applies", func() {
			st := ev.Evaluate([]finance.PaymentMonth{pending(2026, time.April, 15)}, today)
			So(st.DaysRemaining, ShouldEqual, 5)
			So(ev.GracePeriodDays(), ShouldEqual, 10)
		})

		Convey("Then invalid options keep the defaults", func() {
			d := finance.NewEvaluator(finance.WithContenciosoThreshold(0), finance.WithGracePeriodDays(-1))
			So(d.ContenciosoThreshold(), ShouldEqual, finance.DefaultContenciosoThreshold)
			So(d.GracePeriodDays(), ShouldEqual, finance.DefaultGracePeriodDays)
		})
	})

	Convey("Given an evaluator in Luanda time", t, func() {
		loc := time.FixedZone("WAT", 60*60)
		ev := finance.NewEvaluator(finance.WithLocation(loc))

		Convey("When the UTC instant is still the previous day", func() {
			// 23:30 UTC on the 9th is 00:30 on the 10th in Luanda.
			now := time.Date(2026, time.March, 9, 23, 30, 0, 0, time.UTC)
			st := ev.Evaluate([]finance.PaymentMonth{{
				StudentID: "st-1",
				Month:     finance.YearMonth{Year: 2026, Month: time.March},
				Status:    finance.StatusPending,
				DueDate:   time.Date(2026, time.March, 9, 12, 0, 0, 0, loc),
			}}, now)

			Convey("Then the local calendar date decides", func() {
				So(st.OverdueMonths, ShouldResemble, []finance.YearMonth{{Year: 2026, Month: time.March}})
				So(st.DaysRemaining, ShouldEqual, 4)
			})
		})
	})
}

func TestYearMonth(t *testing.T) {
	Convey("Given year-month values", t, func() {
		Convey("Then they parse, print and order", func() {
			ym, err := finance.ParseYearMonth("2026-03")
			So(err, ShouldBeNil)
			So(ym, ShouldResemble, finance.YearMonth{Year: 2026, Month: time.March})
			So(ym.String(), ShouldEqual, "2026-03")
			So(ym.Before(finance.YearMonth{Year: 2026, Month: time.April}), ShouldBeTrue)
			So(ym.After(finance.YearMonth{Year: 2025, Month: time.December}), ShouldBeTrue)

			_, err = finance.ParseYearMonth("March 2026")
			So(err, ShouldNotBeNil)
		})

		Convey("Then they round-trip as text", func() {
			var ym finance.YearMonth
			So(ym.UnmarshalText([]byte("2025-11")), ShouldBeNil)
			b, err := ym.MarshalText()
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "2025-11")
		})
	})
}
