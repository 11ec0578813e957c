// Package apperror holds the errors that are shown to users as an apology
// page. Anything that is not an *Error is treated as an internal failure.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnhandled Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindConflict
	KindTooManyRequests
)

// Error is a user-facing rejection: a short message and the HTTP status it
// is rendered with.
type Error struct {
	Kind    Kind
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Status: http.StatusForbidden}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg, Status: http.StatusNotFound}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Message: msg, Status: http.StatusForbidden}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg, Status: http.StatusConflict}
}

func TooManyRequests(msg string) *Error {
	return &Error{Kind: KindTooManyRequests, Message: msg, Status: http.StatusTooManyRequests}
}

// WithStatus returns a copy of e rendered with a different status.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.Status = status
	return &c
}

// Resolve turns any error into the message and status shown to the user.
// Errors that are not an *Error collapse into a generic server error so
// internals never leak.
func Resolve(err error) (string, int) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message, appErr.Status
	}
	return http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError
}
