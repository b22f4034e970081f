package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an expected failure condition so callers can branch
// on it without string matching. Unexpected conditions (network faults,
// corrupt data) stay plain wrapped errors.
type Kind int

const (
	KindUpstream Kind = iota // provider/token/profile call failed
	KindProviderNotConfigured
	KindInvalidState
	KindMissingVerifier
	KindNoEmailAvailable
	KindEmailNotVerified
	KindUnauthenticated
	KindForbidden
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindUpstream when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUpstream
}

// HTTPStatus maps a kind to the status handlers respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindProviderNotConfigured:
		return http.StatusBadRequest
	case KindInvalidState, KindMissingVerifier, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindEmailNotVerified:
		return http.StatusForbidden
	case KindNoEmailAvailable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
