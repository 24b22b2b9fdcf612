package gradeload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/pauta/pkg/logger"
)

// ErrEntriesFailed is returned when the server rejected generated entries.
var ErrEntriesFailed = errors.New("grade entries failed")

// Run executes a complete load run.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	if config.Workers <= 0 {
		config.Workers = 1
	}
	log.Info(ctx, "starting grade load",
		logger.String("baseURL", config.BaseURL),
		logger.Int("students", config.Students),
		logger.Int("workers", config.Workers),
		logger.String("tier", config.Tier.String()),
		logger.String("policy", string(config.Policy)),
		logger.Float64("pendingRate", config.PendingRate))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate entries and the finals they should produce
	entries, err := generateEntries(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("entry generation failed: %w", err)
	}
	want, err := expectedFinals(config, entries)
	if err != nil {
		return stats, fmt.Errorf("local computation failed: %w", err)
	}

	// Step 3: Submit entries concurrently
	submitEntries(ctx, config, entries, stats)
	if stats.EntriesFailed > 0 || stats.EntriesConflict > 0 {
		return stats, fmt.Errorf("%w: %d failed, %d conflicted", ErrEntriesFailed, stats.EntriesFailed, stats.EntriesConflict)
	}

	// Step 4: Read finals back and compare
	students := make([]string, 0, len(want))
	for id := range want {
		students = append(students, id)
	}
	got, err := fetchFinals(ctx, config, students)
	if err != nil {
		return stats, fmt.Errorf("final retrieval failed: %w", err)
	}
	if err := verifyFinals(ctx, config, want, got, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, entriesPerSecond float64
	if stats.EntriesSubmitted > 0 {
		successRate = float64(stats.EntriesAccepted) / float64(stats.EntriesSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		entriesPerSecond = float64(stats.EntriesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("entriesGenerated", stats.EntriesGenerated),
		logger.Int("entriesSubmitted", stats.EntriesSubmitted),
		logger.Int("entriesAccepted", stats.EntriesAccepted),
		logger.Int("finalsFetched", stats.FinalsFetched),
		logger.Int("finalsMatched", stats.FinalsMatched),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("entriesPerSecond", entriesPerSecond))
}
