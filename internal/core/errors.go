package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation   ErrorCategory = "validation"   // Invalid input
	ErrCatAuth         ErrorCategory = "auth"         // Missing or rejected credential
	ErrCatQuery        ErrorCategory = "query"        // Listing runs or jobs failed
	ErrCatCancellation ErrorCategory = "cancellation" // Cancelling one run failed
	ErrCatTimeout      ErrorCategory = "timeout"      // Operation timed out
	ErrCatRateLimit    ErrorCategory = "rate_limit"   // API rate limited
	ErrCatNotFound     ErrorCategory = "not_found"    // Resource not found
	ErrCatInternal     ErrorCategory = "internal"     // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrAuth creates an authentication error. Fatal for the whole invocation.
func ErrAuth(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatAuth,
		Code:      CodeAuthFailed,
		Message:   message,
		Retryable: false,
	}
}

// ErrQuery creates an error for a failed run or job query.
func ErrQuery(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatQuery,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrCancellation creates an error for a failed cancel request on one run.
func ErrCancellation(runID int64) *DomainError {
	return &DomainError{
		Category:  ErrCatCancellation,
		Code:      CodeCancelFailed,
		Message:   fmt.Sprintf("cancelling run %d failed", runID),
		Retryable: false,
		Details: map[string]interface{}{
			"run_id": runID,
		},
	}
}

// ErrMalformedReference creates an error for a ref that is not a branch ref.
func ErrMalformedReference(ref string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeMalformedReference,
		Message:   fmt.Sprintf("reference %q does not start with %q", ref, BranchRefPrefix),
		Retryable: false,
		Details: map[string]interface{}{
			"ref": ref,
		},
	}
}

// ErrGateTimeout creates an error when a gate job outlives the configured wait.
func ErrGateTimeout(jobID int64, maxWait time.Duration) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeGateTimeout,
		Message:   fmt.Sprintf("gate job %d still in progress after %v", jobID, maxWait),
		Retryable: false,
		Details: map[string]interface{}{
			"job_id":   jobID,
			"max_wait": maxWait.String(),
		},
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatRateLimit,
		Code:      "RATE_LIMITED",
		Message:   message,
		Retryable: true,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeAuthFailed         = "AUTH_FAILED"
	CodeCancelFailed       = "CANCEL_FAILED"
	CodeMalformedReference = "MALFORMED_REFERENCE"
	CodeGateTimeout        = "GATE_TIMEOUT"

	// Query error codes
	CodeListRunsFailed = "LIST_RUNS_FAILED"
	CodeListJobsFailed = "LIST_JOBS_FAILED"
	CodeGetJobFailed   = "GET_JOB_FAILED"
	CodeGetRunFailed   = "GET_RUN_FAILED"

	// Validation error codes
	CodeInvalidConfig = "INVALID_CONFIG"
	CodeInvalidEvent  = "INVALID_EVENT"
	CodeMissingRunID  = "MISSING_RUN_ID"
)
