package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies errors so call sites can decide stop-vs-continue without
// inspecting error text.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindRateLimit   Kind = "rate_limit"
	KindAuth        Kind = "auth"
	KindParsing     Kind = "parsing"
	KindNotFound    Kind = "not_found"
	KindServerError Kind = "server_error"
	KindPersistence Kind = "persistence"
	KindUnknown     Kind = "unknown"
)

// Error is an export error with classification information.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New creates a classified error.
func New(kind Kind, code int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// rateLimitMarkers are matched against untyped error text as a fallback.
// The structured KindRateLimit classification from the client is
// authoritative; text matching only covers errors that arrive unclassified.
var rateLimitMarkers = []string{"rate limit", "rate_limit", "429", "too many requests"}

// IsRateLimited reports whether err signals the platform's rate limit.
// This is the sole run-level pause condition: the orchestrator reacts by
// persisting a checkpoint and stopping, never by retrying.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindRateLimit
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err signals a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsRetryable reports whether a transient retry may help. Rate limits are
// deliberately excluded: they pause the whole run via checkpointing instead
// of being retried in place.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode reports whether an HTTP status code is worth a
// transient retry. 429 is excluded for the same reason as in IsRetryable.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // network error
		return true
	case 429:
		return false
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
