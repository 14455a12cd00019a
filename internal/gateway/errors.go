package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies gateway failures for callers.
type Kind string

const (
	// KindAuthRequired: no token, or the remote rejected it (HTTP 401).
	// Leads to a login prompt, never to a retry.
	KindAuthRequired Kind = "auth_required"
	// KindRemoteFailure: HTTP 5xx or a transport failure. Retryable.
	KindRemoteFailure Kind = "remote_failure"
	// KindValidationFailure: any other HTTP 4xx. Message is shown verbatim.
	KindValidationFailure Kind = "validation_failure"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrAuthRequired      = &Error{Kind: KindAuthRequired}
	ErrRemoteFailure     = &Error{Kind: KindRemoteFailure}
	ErrValidationFailure = &Error{Kind: KindValidationFailure}
)

// Error is the single error shape surfaced by the gateway.
type Error struct {
	Kind    Kind
	Op      string // ex: "fetch_attractions"
	Status  int    // HTTP status, 0 when no response was received
	Message string // human readable, from the remote body when available
	Err     error  // underlying transport or decode error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode exposes the HTTP status to the retry predicate.
func (e *Error) StatusCode() int { return e.Status }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether a retry could help.
func (e *Error) Retryable() bool { return e.Kind == KindRemoteFailure }

// KindOf returns the kind of a gateway error, or "" for anything else.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of a gateway error.
func MessageOf(err error) string {
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
