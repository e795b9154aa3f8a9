package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Codes cover every failure class an engine operation can surface.
const (
	CodeUnauthenticated        = "UNAUTHENTICATED"
	CodeInvalidArgument        = "INVALID_ARGUMENT"
	CodeNotFound               = "NOT_FOUND"
	CodeTransientIO            = "TRANSIENT_IO"
	CodeTimeout                = "TIMEOUT"
	CodeExternalServiceFailure = "EXTERNAL_SERVICE_FAILURE"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthenticated(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, err)
}

func InvalidArgument(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidArgument, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func TransientIO(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeTransientIO, err)
}

func Timeout(err error) *Error {
	return New(http.StatusGatewayTimeout, CodeTimeout, err)
}

func ExternalServiceFailure(err error) *Error {
	return New(http.StatusBadGateway, CodeExternalServiceFailure, err)
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// StatusOf maps err onto an HTTP status, defaulting to 500 for plain errors.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
