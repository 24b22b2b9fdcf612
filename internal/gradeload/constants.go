package gradeload

// Submission outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeConflict = "conflict"
	outcomeFailed   = "failed"
)

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)
