// Package apperr defines the error taxonomy shared by all board Lambdas and
// maps each kind to the HTTP status returned to the caller.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies an error for the HTTP boundary.
type Kind string

const (
	KindConfiguration   Kind = "ConfigurationError"
	KindMalformedInput  Kind = "MalformedInput"
	KindMissingData     Kind = "MissingData"
	KindUnauthorized    Kind = "Unauthorized"
	KindUpstream        Kind = "UpstreamError"
	KindUpstreamTimeout Kind = "UpstreamTimeout"
	KindParseFailure    Kind = "ParseFailure"
	KindInternal        Kind = "InternalError"
)

// Error is a classified failure carrying everything needed to render a
// JSON error body.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	// Details are merged into the error body. Never put secrets here.
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Configuration reports required environment keys that are not set.
func Configuration(missing []string) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Message: "Missing environment variables",
		Status:  http.StatusInternalServerError,
		Details: map[string]any{"missing": missing},
	}
}

// MalformedInput reports a request body that could not be decoded.
func MalformedInput(msg string, err error) *Error {
	return &Error{
		Kind:    KindMalformedInput,
		Message: msg,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// MissingData reports a required field that is absent or empty.
func MissingData(msg string) *Error {
	return &Error{
		Kind:    KindMissingData,
		Message: msg,
		Status:  http.StatusBadRequest,
	}
}

// Unauthorized reports that no caller identity could be resolved.
func Unauthorized(msg string) *Error {
	return &Error{
		Kind:    KindUnauthorized,
		Message: msg,
		Status:  http.StatusUnauthorized,
	}
}

// Upstream reports a non-success answer from a collaborator. The upstream
// status and body text are kept in the message for diagnosis.
func Upstream(service string, status int, body string) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("%s API error %d: %s", service, status, strings.TrimSpace(body)),
		Status:  http.StatusInternalServerError,
	}
}

// UpstreamFailed reports a transport-level failure reaching a collaborator.
func UpstreamFailed(service string, err error) *Error {
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("%s request failed", service),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// UpstreamTimeout reports that a collaborator call exceeded its deadline.
func UpstreamTimeout(service string, timeout time.Duration) *Error {
	return &Error{
		Kind:    KindUpstreamTimeout,
		Message: fmt.Sprintf("%s call timed out after %s", service, timeout),
		Status:  http.StatusInternalServerError,
	}
}

// ParseFailure reports model output that is not the structured JSON a task requires.
func ParseFailure(msg string, err error) *Error {
	return &Error{
		Kind:    KindParseFailure,
		Message: msg,
		Status:  http.StatusUnprocessableEntity,
		Err:     err,
	}
}

// Internal wraps anything unclassified.
func Internal(err error) *Error {
	return &Error{
		Kind:    KindInternal,
		Message: err.Error(),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// From returns the classified error in err's chain, or wraps err as Internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Body renders the JSON error body: the message under "error" plus details.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		body[k] = v
	}
	msg := e.Message
	if e.Kind == KindUpstream && e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	body["error"] = msg
	return body
}
