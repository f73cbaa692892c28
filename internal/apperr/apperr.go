// internal/apperr/apperr.go
package apperr

import (
	"errors"
	"net/http"
)

// Kind is the closed set of failure classes surfaced to clients.
type Kind int

const (
	// Unknown is anything unexpected: storage failures, broken invariants, etc.
	Unknown Kind = iota
	Unauthenticated
	ServerMisconfigured
	NotFound
	Conflict
	Validation
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case ServerMisconfigured:
		return "server_misconfigured"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Validation:
		return "validation"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind to the status code written by handlers.
func (k Kind) HTTPStatus() int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Message is safe to show to clients; Err is the
// underlying cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage returns the client-facing text for err. Unknown and
// misconfiguration errors never expose their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		switch e.Kind {
		case Unknown, ServerMisconfigured:
		default:
			return e.Message
		}
	}
	switch KindOf(err) {
	case Unauthenticated:
		return "unauthenticated"
	case ServerMisconfigured:
		return "server misconfigured"
	case NotFound:
		return "not found"
	case Conflict:
		return "already exists"
	case Validation:
		return "invalid request"
	default:
		return "server error"
	}
}
