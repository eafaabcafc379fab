package source

import (
	"fmt"
	"net/http"
)

// Kind classifies a fetch failure so the orchestrator and the audit log can
// tell retriable conditions from permanent ones.
type Kind string

const (
	KindTransient    Kind = "transient"
	KindRateLimited  Kind = "rate_limited"
	KindMalformed    Kind = "malformed_response"
	KindUnauthorized Kind = "unauthorized"
	KindPersistence  Kind = "persistence"
)

type Error struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(source string, kind Kind, err error) *Error {
	return &Error{Source: source, Kind: kind, Err: err}
}

func classifyStatus(source string, statusCode int) *Error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return newError(source, KindRateLimited, fmt.Errorf("status %d", statusCode))
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return newError(source, KindUnauthorized, fmt.Errorf("status %d", statusCode))
	case statusCode >= 500:
		return newError(source, KindTransient, fmt.Errorf("status %d", statusCode))
	default:
		return newError(source, KindMalformed, fmt.Errorf("unexpected status %d", statusCode))
	}
}
