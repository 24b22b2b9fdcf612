package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/pauta/internal/domain/grading"
	"github.com/okian/pauta/internal/domain/tier"
	"github.com/okian/pauta/internal/gradeload"
	"github.com/okian/pauta/pkg/logger"
)

// Default configuration constants.
const (
	defaultStudents    = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultPendingRate = 0.05
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		students   = flag.Int("students", defaultStudents, "Number of students to grade")
		classID    = flag.String("class", "10A", "Class id; must be seeded in the catalog")
		discipline = flag.String("discipline", "mat", "Discipline id")
		year       = flag.String("year", "2026", "Academic year")
		tierName   = flag.String("tier", "secondary", "Scale of the class: primary or secondary")
		policyName = flag.String("policy", "lenient", "Final policy the server runs with")
		pending    = flag.Float64("pending", defaultPendingRate, "Share of marks left out")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose    = flag.Bool("verbose", false, "Log every mismatch")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		gradeload.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	t, err := tier.Parse(*tierName)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	policy, err := grading.ParsePolicy(*policyName)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &gradeload.Config{
		BaseURL:      *baseURL,
		Students:     *students,
		ClassID:      *classID,
		DisciplineID: *discipline,
		AcademicYear: *year,
		Tier:         t,
		Policy:       policy,
		PendingRate:  *pending,
		Workers:      *workers,
		Timeout:      *timeout,
		Editor:       "grade-load",
		Verbose:      *verbose,
	}

	if _, err := gradeload.Run(ctx, config); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
