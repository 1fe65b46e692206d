package types

import "errors"

// Domain errors for caller-level validation
var (
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrInvalidNoteType   = errors.New("invalid note type")
	ErrInvalidNoteStatus = errors.New("invalid note status")
)
