package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedProvider indicates an unknown connector provider kind.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMalformedRecord indicates a raw record that cannot be normalised:
	// a required field is missing, an amount is non-numeric, a timestamp
	// does not parse, or a rating is outside its bounds.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrSchedulerStopped indicates the scheduler has been stopped.
	// A stopped scheduler is terminal; construct a new one to restart.
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrSaveFailed indicates an ingestion event could not be persisted.
	// The event is considered not-yet-saved and is retried on the next
	// cycle if the source re-reports the same observation.
	ErrSaveFailed = errors.New("save failed")
)
