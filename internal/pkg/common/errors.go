package common

import (
	"errors"
	"net/http"
)

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError carries an error code, a human-readable message and the HTTP
// status it maps to at the API boundary.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError creates a new CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Predefined error codes.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"     // 400
	ErrCodeNotFound           = "NOT_FOUND"           // 404
	ErrCodeConflict           = "CONFLICT"            // 409
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"   // 429
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
)

// Predefined API errors.
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "invalid request", http.StatusBadRequest, nil)
	ErrNotFound        = NewError(ErrCodeNotFound, "resource not found", http.StatusNotFound, nil)
	ErrConflict        = NewError(ErrCodeConflict, "resource conflict", http.StatusConflict, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrQueueFull       = NewError(ErrCodeServiceUnavailable, "import queue is full", http.StatusServiceUnavailable, nil)
)

// Pipeline sentinel errors. Stage-level sentinels are recoverable: the
// orchestrator treats them as "this stage found nothing" and advances to the
// next fallback. Job-level sentinels fail the whole import.
var (
	// ErrMissingInput reports a job whose required field for its input type
	// is absent. Job-level, fatal.
	ErrMissingInput = errors.New("missing required input for import type")

	// ErrBlockedURL reports a URL that failed the SSRF guard. Job-level for
	// url imports, never retried.
	ErrBlockedURL = errors.New("url is not allowed")

	// ErrNoRecipeFound reports an extraction stage that produced no usable
	// recipe. Stage-level, recoverable.
	ErrNoRecipeFound = errors.New("no recipe found")

	// ErrNoStructuredResponse reports an LLM reply that did not contain the
	// forced tool call. Stage-level for the structurer, swallowed entirely by
	// the best-effort attacher.
	ErrNoStructuredResponse = errors.New("model returned no structured response")

	// ErrDuplicateImport reports a (user, url) pair that already has an
	// in-flight import marker.
	ErrDuplicateImport = errors.New("import already in progress for this url")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	message string
}

func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError creates a new validation error.
func NewValidationError(message string) error {
	return &ValidationError{message: message}
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
