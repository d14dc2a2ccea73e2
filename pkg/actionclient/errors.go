package actionclient

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	CodeConfigMissing     ErrorCode = "CONFIG_MISSING"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeNetwork           ErrorCode = "NETWORK_ERROR"
	CodeHTTP              ErrorCode = "HTTP_ERROR"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
)

// Sentinels for errors.Is; matching compares Code only.
var (
	ErrConfigMissing     = &Error{Code: CodeConfigMissing}
	ErrTimeout           = &Error{Code: CodeTimeout}
	ErrNetwork           = &Error{Code: CodeNetwork}
	ErrHTTP              = &Error{Code: CodeHTTP}
	ErrMalformedResponse = &Error{Code: CodeMalformedResponse}
)

type Error struct {
	Code    ErrorCode
	Status  int
	Timeout time.Duration
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "action envelope error: code=%s", e.Code)
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Timeout != 0 {
		fmt.Fprintf(&b, " timeout=%s", e.Timeout)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code == e.Code
}

func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether the failure happened before the backend
// could have answered. Whether the action itself is safe to repeat is
// still the caller's call.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeTimeout, CodeNetwork:
		return true
	default:
		return false
	}
}

func configMissing(message string, err error) *Error {
	return &Error{Code: CodeConfigMissing, Message: message, Err: err}
}

func malformed(message string, err error) *Error {
	return &Error{Code: CodeMalformedResponse, Message: message, Err: err}
}
