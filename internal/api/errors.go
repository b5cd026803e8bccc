package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API exchange.
type Kind int

const (
	KindInvalidURL Kind = iota + 1
	KindInvalidResponse
	KindUnauthorized
	KindServer
	KindDecoding
	KindNoData
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindInvalidResponse:
		return "invalid_response"
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindDecoding:
		return "decoding"
	case KindNoData:
		return "no_data"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type produced by the transport and the
// orchestrator. Status is zero when no response was received.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidURL      = &Error{Kind: KindInvalidURL}
	ErrInvalidResponse = &Error{Kind: KindInvalidResponse}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrServer          = &Error{Kind: KindServer}
	ErrDecoding        = &Error{Kind: KindDecoding}
	ErrNoData          = &Error{Kind: KindNoData}
)

// ErrSessionEnded is reported by Credentials when a refresh resolves after the
// session it was started for was cleared or replaced.
var ErrSessionEnded = errors.New("session ended during token refresh")

func (e *Error) Error() string {
	msg := e.text()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) text() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindInvalidURL:
		return "invalid URL"
	case KindInvalidResponse:
		return "invalid server response"
	case KindUnauthorized:
		return "unauthorized: please log in again"
	case KindServer:
		if e.Status > 0 {
			return fmt.Sprintf("server error: %d", e.Status)
		}
		return "server error"
	case KindDecoding:
		return "failed to decode response"
	case KindNoData:
		return "no data received"
	default:
		return "api error"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsServerError reports whether err carries a server supplied failure.
func IsServerError(err error) bool {
	return errors.Is(err, ErrServer)
}

// KindOf returns the kind of err, or zero when err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return 0
}

// Message returns text fit for display: the server message for server
// errors, the canonical description for other kinds.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.text()
	}
	return err.Error()
}

func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}
