package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies failures for transport mapping.
type Kind string

const (
	NotFound       Kind = "not_found"
	Conflict       Kind = "conflict"
	InvalidInput   Kind = "invalid"
	Unauthorized   Kind = "unauthorized"
	StartupFailure Kind = "startup_failed"
	Internal       Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so errors.Is(err, apperr.E(NotFound)) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// E is a bare kind marker for errors.Is comparisons.
func E(kind Kind) *Error { return &Error{Kind: kind} }

// KindOf returns the kind of the first *Error in the chain, Internal otherwise.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the user-facing message of a typed error.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return ""
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case InvalidInput:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var persistencePatterns = []struct {
	needles []string
	kind    Kind
}{
	{[]string{"violates foreign key constraint", "foreign key constraint failed"}, InvalidInput},
	{[]string{"violates unique constraint", "unique constraint failed", "duplicate key"}, Conflict},
	{[]string{"no row was found for one", "no results found", "record not found"}, NotFound},
	{[]string{"violates check constraint", "check constraint failed"}, InvalidInput},
}

// FromPersistence classifies a storage failure by its message text.
// Already typed errors pass through unchanged.
func FromPersistence(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	text := strings.ToLower(err.Error())
	for _, p := range persistencePatterns {
		for _, n := range p.needles {
			if strings.Contains(text, n) {
				return Wrap(p.kind, "", err)
			}
		}
	}
	return Wrap(Internal, "database error", err)
}
