package gradeload

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/pkg/logger"
)

const randomFloatDivisor = 1000000

// getRandomFloat returns a random float64 in [0, 1) using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// randomMark returns a mark with one decimal place in [0, scale].
func randomMark(scale decimal.Decimal) decimal.Decimal {
	tenths := scale.Shift(1).IntPart() + 1
	n, _ := rand.Int(rand.Reader, big.NewInt(tenths))
	return decimal.New(n.Int64(), -1)
}

// generateEntries creates one entry per student and trimester. Student ids
// are fresh UUIDs so repeated runs never collide on versions.
func generateEntries(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	if config.Students <= 0 {
		return nil, fmt.Errorf("students must be positive, got %d", config.Students)
	}
	logger.Get().Info(ctx, "generating grade entries", logger.Int("students", config.Students))

	scale := config.Tier.ScaleMax()
	entries := make([]Entry, 0, config.Students*grading.TrimestersPerYear)
	for i := 0; i < config.Students; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during generation: %w", err)
		}
		studentID := uuid.NewString()
		for t := 1; t <= grading.TrimestersPerYear; t++ {
			e := Entry{
				StudentID:    studentID,
				DisciplineID: config.DisciplineID,
				ClassID:      config.ClassID,
				AcademicYear: config.AcademicYear,
				Trimester:    t,
				Editor:       config.Editor,
			}
			for _, comp := range []*decimal.NullDecimal{&e.MAC, &e.PP, &e.PT} {
				if getRandomFloat() < config.PendingRate {
					continue
				}
				*comp = decimal.NewNullDecimal(randomMark(scale))
			}
			entries = append(entries, e)
		}
	}

	stats.EntriesGenerated = len(entries)
	logger.Get().Info(ctx, "generated entries", logger.Int("count", len(entries)))
	return entries, nil
}
