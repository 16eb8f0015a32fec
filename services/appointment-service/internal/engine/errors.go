package engine

import "errors"

// The engine classifies every rejection into exactly one of these kinds so
// callers can map them to a specific response. Anything else that comes out
// of an operation is transient storage or I/O failure and safe to retry.
var (
	// ErrNotFound: a referenced customer, business, service, employee,
	// schedule or appointment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: overlapping booking, outside work hours, or an invalid
	// state transition. Not retried automatically.
	ErrConflict = errors.New("conflict")

	// ErrForbidden: the actor lacks the required relationship to the
	// appointment (not the customer, owner or assigned employee).
	ErrForbidden = errors.New("forbidden")
)
