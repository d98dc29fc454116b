package errors

import "github.com/cockroachdb/errors"

// Sentinel errors. Every error produced by this module is marked with exactly
// one of these so callers can branch without string matching.
var (
	// ErrNotFound - profile or subscription missing; surfaced, no retry
	ErrNotFound = errors.New("item not found")
	// ErrValidation - business rule violation (trial already used, same plan, bad input)
	ErrValidation = errors.New("validation error")
	// ErrAlreadyExists - unique constraint violation
	ErrAlreadyExists = errors.New("item already exists")
	// ErrInvalidOperation - action attempted from a state that forbids it
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrPaymentFailed - gateway charge declined
	ErrPaymentFailed = errors.New("payment failed")
	// ErrDatabase - storage layer failure
	ErrDatabase = errors.New("database error")
	// ErrSystem - anything else internal
	ErrSystem = errors.New("system error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsPaymentFailed(err error) bool {
	return errors.Is(err, ErrPaymentFailed)
}

func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}
