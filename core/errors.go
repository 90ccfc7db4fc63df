package core

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ValidationError reports rejected input. FieldErrors maps field names to
// human readable messages; Msg covers problems not tied to a single field.
type ValidationError struct {
	Msg         string
	FieldErrors map[string]string
}

func NewValidationError(msg string) error {
	return &ValidationError{Msg: msg}
}

// NewFieldError builds a ValidationError for one named field.
func NewFieldError(field, msg string) error {
	return &ValidationError{FieldErrors: map[string]string{field: msg}}
}

func (err ValidationError) Error() string {
	if err.Msg != "" {
		return err.Msg
	}
	parts := make([]string, 0, len(err.FieldErrors))
	for fld, msg := range err.FieldErrors {
		parts = append(parts, fld+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

type shutdownError struct {
	msg string
}

func NewShutdownError(msg string) error {
	return &shutdownError{msg: msg}
}

func (err *shutdownError) Error() string {
	return err.msg
}

// IsShutdown reports whether err signals that the process should stop.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}
