package repository

import "errors"

// Sentinel kinds for goal store errors.
var (
	ErrNotFound       = errors.New("weekly goal not found")
	ErrInvalidBackend = errors.New("unknown store backend")
	ErrMissingDSN     = errors.New("store backend requires a connection string")
)
