package model

import "errors"

// ErrInvalidKey is returned when a record key is incomplete or out of range.
var ErrInvalidKey = errors.New("invalid record key")
