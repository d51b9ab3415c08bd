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

// IsError reports whether err is, or wraps, an availability error.
func IsError(err error) bool {
	var target *errorString
	return errors.As(err, &target)
}

func (e *errorString) Error() string {
	return e.s
}
