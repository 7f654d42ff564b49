package types

import "errors"

// Domain error taxonomy. Services and repositories wrap these sentinels;
// the HTTP layer maps them to status codes in exactly one place.
var (
	ErrValidation      = errors.New("invalid input")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
)
