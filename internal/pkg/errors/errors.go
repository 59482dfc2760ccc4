package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict marks writes rejected by a uniqueness constraint.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks a collaborator that is missing or unreachable.
	ErrUnavailable = errors.New("unavailable")
	// ErrMisconfigured marks a collaborator that cannot work with the current settings
	// (missing credentials, rejected key). Retrying does not help.
	ErrMisconfigured = errors.New("misconfigured")
)
