package strapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the Strapi API.
//
// Status is always the HTTP status code. Name, Message and Details are filled
// from the {"error": {...}} envelope Strapi returns when the body has one; Body
// keeps the raw response so nothing the server said is lost.
type APIError struct {
	Status  int            `json:"status"            yaml:"status"`
	Name    string         `json:"name"              yaml:"name"`
	Message string         `json:"message"           yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Body    []byte         `json:"-"                 yaml:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Name == "" && e.Message == "" {
		return fmt.Sprintf("strapi: HTTP %d", e.Status)
	}

	return fmt.Sprintf("%s: %s (status: %d)", e.Name, e.Message, e.Status)
}

// ErrorResponse is the error envelope returned by the Strapi API.
type ErrorResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// Common error names reported by Strapi.
const (
	ErrorNameNotFound        = "NotFoundError"
	ErrorNameUnauthorized    = "UnauthorizedError"
	ErrorNameForbidden       = "ForbiddenError"
	ErrorNameValidation      = "ValidationError"
	ErrorNameApplicationFail = "ApplicationError"
)

// Static errors for err113 compliance.
var (
	ErrInvalidOperation     = errors.New("invalid bulk operation")
	ErrInvalidRawQuery      = errors.New("raw query must be a string when stringify is false")
	ErrRollbackFailed       = errors.New("atomic rollback failed")
	ErrConfigRequired       = errors.New("config is required")
	ErrBaseURLRequired      = errors.New("base URL is required")
	ErrResourceNameRequired = errors.New("resource name is required")
	ErrUsersOnly            = errors.New("auth method is only available for users content type")
)

// RollbackError is returned by an atomic batch when a compensating call
// itself failed. The remote state may be partially compensated; no further
// recovery is attempted.
type RollbackError struct {
	// OperationIndex is the position in the batch whose compensation failed.
	OperationIndex int
	// Operation is the type of the operation being compensated.
	Operation OperationType
	// Err is the failure of the compensating call.
	Err error
	// Cause is the error that triggered the rollback.
	Cause error
}

// Error implements the error interface.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("%s: compensating %s at index %d: %v (original error: %v)",
		ErrRollbackFailed, e.Operation, e.OperationIndex, e.Err, e.Cause)
}

// Unwrap exposes the compensation failure and the original error.
func (e *RollbackError) Unwrap() []error {
	return []error{ErrRollbackFailed, e.Err, e.Cause}
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound, ErrorNameNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized, ErrorNameUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden, ErrorNameForbidden)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Name == ErrorNameValidation
	}

	return false
}

func hasStatus(err error, status int, name string) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Status == status || apiErr.Name == name
	}

	return false
}

// ParseErrorResponse builds an APIError from a response status and body.
// Bodies that are not a Strapi error envelope still yield an APIError
// carrying the status and raw body.
func ParseErrorResponse(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Body: body}

	var envelope ErrorResponse

	err := json.Unmarshal(body, &envelope)
	if err != nil || envelope.Error == nil {
		return apiErr
	}

	apiErr.Name = envelope.Error.Name
	apiErr.Message = envelope.Error.Message
	apiErr.Details = envelope.Error.Details

	return apiErr
}
