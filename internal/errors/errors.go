// Package errors provides the error type used across the module. It is
// conventionally imported as ierr to avoid clashing with the standard library.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// InternalError is a rich error carrying a user-facing hint and structured
// details alongside the wrapped cause. It is built fluently and finished with
// Mark, which ties the error to one of the sentinel codes.
type InternalError struct {
	cause             error
	hint              string
	reportableDetails map[string]interface{}
	mark              error
}

// NewError starts a new error chain from a message
func NewError(message string) *InternalError {
	return &InternalError{cause: errors.New(message)}
}

// NewErrorf starts a new error chain from a formatted message
func NewErrorf(format string, args ...interface{}) *InternalError {
	return &InternalError{cause: errors.Newf(format, args...)}
}

// WithError starts an error chain wrapping an existing error
func WithError(err error) *InternalError {
	return &InternalError{cause: err}
}

// WithHint attaches a short, user-facing explanation
func (e *InternalError) WithHint(hint string) *InternalError {
	e.hint = hint
	return e
}

// WithHintf attaches a formatted user-facing explanation
func (e *InternalError) WithHintf(format string, args ...interface{}) *InternalError {
	e.hint = fmt.Sprintf(format, args...)
	return e
}

// WithReportableDetails attaches structured details safe to return to callers
func (e *InternalError) WithReportableDetails(details map[string]interface{}) *InternalError {
	e.reportableDetails = details
	return e
}

// Mark finalizes the chain against a sentinel so errors.Is works on the result
func (e *InternalError) Mark(sentinel error) error {
	e.mark = sentinel
	return e
}

func (e *InternalError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *InternalError) Unwrap() error {
	return e.cause
}

// Is lets errors.Is match both the sentinel mark and the wrapped cause
func (e *InternalError) Is(target error) bool {
	if e.mark != nil && errors.Is(e.mark, target) {
		return true
	}
	return errors.Is(e.cause, target)
}

// Hint extracts the hint from an error chain, if any
func Hint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.hint
	}
	return ""
}

// ReportableDetails extracts the structured details from an error chain, if any
func ReportableDetails(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.reportableDetails
	}
	return nil
}
