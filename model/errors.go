package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrExhaustedRetries terminates a question after the transient-retry budget
// is spent. The session remains usable for the next question.
var ErrExhaustedRetries = errors.New("exhausted retries")

// ErrorKind classifies provider failures into the retry taxonomy.
type ErrorKind int

const (
	// KindFatal marks non-retryable failures (malformed response, unexpected
	// schema). They end the question immediately.
	KindFatal ErrorKind = iota
	// KindAuth marks credential failures. Never retried; ends the session.
	KindAuth
	// KindTransient marks rate-limit / quota / timeout failures eligible for
	// backoff and retry.
	KindTransient
)

// String returns the kind name for logging.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// APIError is a classified provider failure.
type APIError struct {
	Kind    ErrorKind
	Status  int // HTTP status when known, 0 otherwise
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model api error (%s, status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("model api error (%s): %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying SDK error.
func (e *APIError) Unwrap() error { return e.Err }

// Classify buckets a provider failure by HTTP status and message content.
// Status wins when present; otherwise the message is sniffed for the usual
// provider phrasing of auth and throttling failures.
func Classify(status int, message string, err error) *APIError {
	kind := KindFatal
	switch {
	case status == 401 || status == 403:
		kind = KindAuth
	case status == 408 || status == 429 || status >= 500:
		kind = KindTransient
	case status == 0:
		lower := strings.ToLower(message)
		switch {
		case containsAny(lower, "unauthenticated", "permission denied", "invalid api key", "invalid x-api-key", "credentials"):
			kind = KindAuth
		case containsAny(lower, "rate limit", "resource_exhausted", "quota", "timeout", "deadline", "overloaded", "unavailable"):
			kind = KindTransient
		}
	}
	return &APIError{Kind: kind, Status: status, Message: message, Err: err}
}

// IsAuth reports whether err is an authentication-class failure.
func IsAuth(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// IsTransient reports whether err is eligible for retry.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransient
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
