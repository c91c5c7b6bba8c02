package models

import "errors"

// Store-level errors shared by the postgres and in-memory repositories.
var (
	ErrNotFound        = errors.New("not found")
	ErrStalePick       = errors.New("pick counter moved")
	ErrDuplicatePlayer = errors.New("player already drafted")
	ErrConflict        = errors.New("conflicting update")
)
