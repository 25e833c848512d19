package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an extraction attempt failed
type ErrorKind string

const (
	KindInvalidReference       ErrorKind = "invalid_reference"
	KindSiteUnreachable        ErrorKind = "site_unreachable"
	KindAutomation             ErrorKind = "automation_error"
	KindTimeout                ErrorKind = "timeout"
	KindSessionTeardownFailure ErrorKind = "session_teardown_failure"
)

// Sentinels for errors.Is matching on kind alone
var (
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
	ErrSiteUnreachable  = &Error{Kind: KindSiteUnreachable}
	ErrAutomation       = &Error{Kind: KindAutomation}
	ErrTimeout          = &Error{Kind: KindTimeout}
)

// Error is a classified extraction failure. Err keeps the underlying cause.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

// NewError creates a classified error
func NewError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality against a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Detail == "" && t.Err == nil
}

// Retryable reports whether repeating the whole attempt could help
func (e *Error) Retryable() bool {
	return e.Kind != KindInvalidReference
}

// KindOf extracts the classification of err, or "" when err is unclassified
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
