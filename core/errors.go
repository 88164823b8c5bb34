package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	if len(err.Fields) > 0 {
		return err.Fields[0].Error
	}
	return ""
}

func (err ValidationError) Unwrap() error { return err.Err }

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// NotFoundError reports a missing object, with the closest known ID when there is one.
type NotFoundError struct {
	Object     string // "Project", "Team", ...
	ID         string
	Suggestion string
}

// NewNotFoundError builds a NotFoundError, suggesting the closest of `known` IDs.
func NewNotFoundError(object, id string, known ...string) error {
	return &NotFoundError{Object: object, ID: id, Suggestion: Suggest(id, known)}
}

func (err NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %s does not exist", err.Object, err.ID)
	if err.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", err.Suggestion)
	}
	return msg
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}
