package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies LLM failures so callers can pick the right fallback.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"
	ErrorTypeEndpoint  ErrorType = "endpoint"
	ErrorTypeModel     ErrorType = "model"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeMalformed ErrorType = "malformed_output"
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a structured LLM failure. Every call into a model returns either
// a value or one of these; nil sentinels never reach the validator.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool { return e.Retryable }

// NewError creates a structured LLM error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

// IsTimeout reports whether the error chain contains an LLM timeout.
func IsTimeout(err error) bool {
	var llmErr *Error
	return errors.As(err, &llmErr) && llmErr.Type == ErrorTypeTimeout
}

// IsMalformed reports whether the error chain is a malformed-output failure.
func IsMalformed(err error) bool {
	var llmErr *Error
	return errors.As(err, &llmErr) && llmErr.Type == ErrorTypeMalformed
}

// ClassifyError categorizes a transport-level error into a structured Error.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classified := func(t ErrorType, msg string, retryable bool) *Error {
		e := NewError(t, msg, retryable, err)
		e.StatusCode = statusCode
		return e
	}

	switch {
	case strings.Contains(errStr, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		return classified(ErrorTypeAuth, "authentication failed", false)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return classified(ErrorTypeModel, "model not found", false)

	case strings.Contains(errStr, "404"):
		return classified(ErrorTypeEndpoint, "endpoint not found", false)

	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "context canceled") ||
		strings.Contains(lower, "timeout"):
		return classified(ErrorTypeTimeout, "request timeout", true)

	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return classified(ErrorTypeTransport, "connection failed", true)

	case strings.Contains(errStr, "429") || strings.Contains(lower, "rate limit"):
		return classified(ErrorTypeTransport, "rate limited", true)

	case strings.Contains(errStr, "500") || strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") || strings.Contains(errStr, "504"):
		return classified(ErrorTypeTransport, "server error", true)
	}

	return classified(ErrorTypeUnknown, "llm error", false)
}
