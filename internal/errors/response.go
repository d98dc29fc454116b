package errors

import "net/http"

// ErrorDetail is the error payload sent to API callers
type ErrorDetail struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ErrorResponse is the uniform error envelope for all HTTP endpoints
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// NewErrorResponse builds the caller-facing payload from an error. Internal
// messages never leak: only the hint and reportable details are exposed.
func NewErrorResponse(err error) ErrorResponse {
	message := Hint(err)
	if message == "" {
		switch {
		case IsNotFound(err):
			message = "resource not found"
		case IsValidation(err):
			message = "invalid request"
		case IsInvalidOperation(err):
			message = "operation not allowed in the current state"
		case IsPaymentFailed(err):
			message = "payment failed"
		default:
			message = "internal server error"
		}
	}
	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Message: message,
			Details: ReportableDetails(err),
		},
	}
}

// HTTPStatusFromErr maps the error taxonomy to HTTP status codes
func HTTPStatusFromErr(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsValidation(err) || IsAlreadyExists(err):
		return http.StatusBadRequest
	case IsInvalidOperation(err):
		return http.StatusConflict
	case IsPaymentFailed(err):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
