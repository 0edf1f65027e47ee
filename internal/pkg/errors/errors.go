package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict reports a uniqueness race that could not be resolved locally.
	ErrConflict = errors.New("conflict")
)
