// Package availability defines the errors drivers report when a device can
// not be used. They are the Go equivalent of the DOMExceptions a browser
// rejects getUserMedia with.
package availability

import (
	"errors"
)

var (
	ErrUnimplemented    = NewError("not implemented")
	ErrBusy             = NewError("device or resource busy")
	ErrNoDevice         = NewError("no such device")
	ErrPermissionDenied = NewError("permission denied")
)

type errorString struct {
	s string
}

func NewError(text string) error {
	return &errorString{text}
}

// IsError reports whether err, or any error it wraps, is an availability error.
func IsError(err error) bool {
	var target *errorString
	return errors.As(err, &target)
}

func (e *errorString) Error() string {
	return e.s
}
