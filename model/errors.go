package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest      = "BAD_REQUEST"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrForbidden       = "FORBIDDEN"
	ErrNotFound        = "NOT_FOUND"
	ErrConflict        = "CONFLICT"
	ErrValidationError = "VALIDATION_ERROR"
	ErrInternalError   = "INTERNAL_ERROR"
)

// Case lifecycle error codes.
const (
	ErrInvalidTransition = "INVALID_TRANSITION"
	ErrInvalidRole       = "INVALID_ROLE"
	ErrCapacityExceeded  = "CAPACITY_EXCEEDED"
	ErrNoCandidates      = "NO_CANDIDATES"
	ErrAlreadyAssigned   = "ALREADY_ASSIGNED"
	ErrNotAssigned       = "NOT_ASSIGNED"
)

// ErrorEnvelope is the standard error response envelope returned by the
// service. It implements the error interface.
type ErrorEnvelope struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR with field-level details.
func NewValidationError(details []FieldError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrValidationError,
		Message: "One or more fields are invalid",
		Details: details,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewInvalidTransitionError returns an INVALID_TRANSITION error.
func NewInvalidTransitionError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidTransition, Message: msg}
}

// NewInvalidRoleError returns an INVALID_ROLE error.
func NewInvalidRoleError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrInvalidRole, Message: msg}
}

// NewCapacityExceededError returns a CAPACITY_EXCEEDED error.
func NewCapacityExceededError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrCapacityExceeded, Message: msg}
}

// NewNoCandidatesError returns a NO_CANDIDATES error.
func NewNoCandidatesError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNoCandidates, Message: msg}
}

// NewAlreadyAssignedError returns an ALREADY_ASSIGNED error.
func NewAlreadyAssignedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrAlreadyAssigned, Message: msg}
}

// NewNotAssignedError returns a NOT_ASSIGNED error.
func NewNotAssignedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotAssigned, Message: msg}
}
