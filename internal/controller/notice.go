package controller

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/wander/internal/gateway"
)

// NoticeKind classifies what the user is told.
type NoticeKind string

const (
	NoticeRemoteFailure NoticeKind = "remote_failure"
	NoticeValidation    NoticeKind = "validation"
	NoticeAuthRequired  NoticeKind = "auth_required"
)

// Notice is a dismissible message. Retryable notices come with a retry
// control bound to RetryLast; the others only show a message.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Op        string     `json:"op,omitempty"`
	Message   string     `json:"message"`
	Field     string     `json:"field,omitempty"` // form field of a validation failure
	Retryable bool       `json:"retryable"`
}

// LoginPrompt asks the UI to open the login form.
type LoginPrompt struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// Login prompt reasons.
const (
	PromptBookmark      = "bookmark"
	PromptBookmarksOnly = "bookmarks_only"
	PromptSessionLost   = "session_lost"
)

const remoteFailureMessage = "The attractions service is not responding. Please try again."

// ErrAuthRequired is returned by entry points refused for lack of a session.
var ErrAuthRequired = gateway.ErrAuthRequired

// ErrInvalidInput is returned when a form is rejected before any network call.
var ErrInvalidInput = errors.New("invalid input")

func remoteNotice(op string) *Notice {
	return &Notice{Kind: NoticeRemoteFailure, Op: op, Message: remoteFailureMessage, Retryable: true}
}

func validationNotice(op, field string, err error) *Notice {
	return &Notice{Kind: NoticeValidation, Op: op, Message: gateway.MessageOf(err), Field: field}
}

// credentialField picks the form field a remote auth rejection belongs to.
func credentialField(err error) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		switch gerr.Status {
		case http.StatusConflict:
			return "username"
		case http.StatusUnauthorized, http.StatusForbidden:
			return "password"
		}
	}
	return "username"
}
