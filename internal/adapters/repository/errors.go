package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record version conflict")
	ErrAlreadyPaid     = errors.New("month already paid")
	ErrInvalidRecord   = errors.New("invalid record")
)
