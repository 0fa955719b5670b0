// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package actions

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/danielhkuo/pollbase/models"
)

// Kind classifies a failed action
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindAuthRequired     Kind = "AUTH_REQUIRED"
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindNotFound         Kind = "NOT_FOUND"
	KindDatabase         Kind = "DATABASE_ERROR"
	KindUnknown          Kind = "UNKNOWN"
)

// Caller-facing messages. Storage and unexpected failures never expose details.
const (
	msgValidation       = "Please correct the highlighted fields"
	msgAuthRequired     = "You must be signed in to do that"
	msgPermissionDenied = "You do not have permission to modify this poll"
	msgPollNotFound     = "Poll not found"
	msgOptionNotFound   = "Option not found"
	msgDatabase         = "Database error, please try again"
	msgUnknown          = "Something went wrong, please try again"
)

// Error is a typed action failure. Err holds the detail that is logged
// but never returned to the caller.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the kind to an HTTP status code
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// KindOf returns the kind of err; anything untyped is UNKNOWN
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Failure converts err into the response envelope
func Failure(err error) models.ActionResponse {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = unknownError(err)
	}
	return models.ActionResponse{
		Success: false,
		Message: ae.Message,
		Code:    string(ae.Kind),
		Errors:  ae.Fields,
	}
}

func validationError(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: msgValidation, Fields: fields}
}

func fieldError(field, message string) *Error {
	return validationError(map[string][]string{field: {message}})
}

func authRequired() *Error {
	return &Error{Kind: KindAuthRequired, Message: msgAuthRequired}
}

func permissionDenied() *Error {
	return &Error{Kind: KindPermissionDenied, Message: msgPermissionDenied}
}

func notFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func databaseError(op string, err error) *Error {
	return &Error{Kind: KindDatabase, Message: msgDatabase, Err: fmt.Errorf("%s: %w", op, err)}
}

func unknownError(err error) *Error {
	return &Error{Kind: KindUnknown, Message: msgUnknown, Err: err}
}
