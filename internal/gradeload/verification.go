package gradeload

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/model"
	"github.com/okian/pauta/pkg/logger"
)

// expectedFinals recomputes each student's final from the generated marks.
func expectedFinals(config *Config, entries []Entry) (map[string]grading.FinalResult, error) {
	averages := make(map[string][]decimal.NullDecimal)
	for _, e := range entries {
		res, err := grading.ComputeTrimester(e.Components(), config.Tier)
		if err != nil {
			return nil, fmt.Errorf("student %s trimester %d: %w", e.StudentID, e.Trimester, err)
		}
		avgs, ok := averages[e.StudentID]
		if !ok {
			avgs = make([]decimal.NullDecimal, grading.TrimestersPerYear)
			averages[e.StudentID] = avgs
		}
		avgs[e.Trimester-1] = res.Average
	}

	want := make(map[string]grading.FinalResult, len(averages))
	for id, avgs := range averages {
		want[id] = grading.ComputeFinal(avgs, config.Tier, grading.WithPolicy(config.Policy))
	}
	return want, nil
}

// verifyFinals compares what the server reported with the local result.
func verifyFinals(ctx context.Context, config *Config, want map[string]grading.FinalResult, got map[string]model.FinalRecord, stats *Stats) error {
	log := logger.Get()
	stats.FinalsFetched = len(got)

	for id, w := range want {
		fr, ok := got[id]
		if !ok {
			stats.FinalsMismatched++
			continue
		}
		if err := sameFinal(w, fr.Result); err != nil {
			stats.FinalsMismatched++
			if config.Verbose {
				log.Warn(ctx, "final mismatch", logger.String("student_id", id), logger.Error(err))
			}
			continue
		}
		stats.FinalsMatched++
	}

	if stats.FinalsMismatched > 0 {
		return fmt.Errorf("%d of %d finals differ from the local computation", stats.FinalsMismatched, len(want))
	}
	log.Info(ctx, "finals verified", logger.Int("matched", stats.FinalsMatched))
	return nil
}

func sameFinal(want, got grading.FinalResult) error {
	if want.Status != got.Status {
		return fmt.Errorf("status %s, want %s", got.Status, want.Status)
	}
	if want.Average.Valid != got.Average.Valid ||
		(want.Average.Valid && !want.Average.Decimal.Equal(got.Average.Decimal)) {
		return fmt.Errorf("average %v, want %v", got.Average, want.Average)
	}
	if want.Classification != got.Classification {
		return fmt.Errorf("classification %q, want %q", got.Classification, want.Classification)
	}
	if want.Approved != got.Approved {
		return fmt.Errorf("approved %t, want %t", got.Approved, want.Approved)
	}
	return nil
}
