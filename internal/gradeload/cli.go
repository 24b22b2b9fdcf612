package gradeload

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	os.Stdout.WriteString(`Pauta Grade Load Tool
=====================

Submits random trimester marks for many students concurrently, then reads
every final back and compares it with a local computation.

Usage:
  go run ./cmd/grade-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -students int
        Number of students to grade (default 1000)
  -class string
        Class id; must be seeded in the catalog (default "10A")
  -discipline string
        Discipline id (default "mat")
  -year string
        Academic year (default "2026")
  -tier string
        Scale of the class: primary or secondary (default "secondary")
  -policy string
        Final policy the server runs with: lenient or strict (default "lenient")
  -pending float
        Share of marks left out (default 0.05)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Log every mismatch
  -help
        Show this help message

Examples:
  # Primary class seeded as 3B, strict server
  go run ./cmd/grade-load -class 3B -tier primary -policy strict
`)
}
