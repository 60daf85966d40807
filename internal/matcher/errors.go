package matcher

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a matcher failure class.
type ErrorCode string

const (
	ErrNotConfigured   ErrorCode = "NOT_CONFIGURED"
	ErrUnavailable     ErrorCode = "UNAVAILABLE"
	ErrRateLimited     ErrorCode = "RATE_LIMITED"
	ErrRejected        ErrorCode = "REJECTED"
	ErrEmptyResponse   ErrorCode = "EMPTY_RESPONSE"
	ErrInvalidResponse ErrorCode = "INVALID_RESPONSE"
)

// Error is a structured error for matcher failures.
type Error struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error

	// RetryAfter is the wait the API asked for, if any.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether err is a matcher error worth retrying.
func IsRetryable(err error) bool {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Retryable
	}
	return false
}

func newError(code ErrorCode, retryable bool, cause error, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryable,
		Cause:     cause,
	}
}
