package core

import "github.com/pkg/errors"

// FieldError pins a validation failure to a single request field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports request failures detected outside the struct-tag
// validators, with per-field detail for the API to render.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, fields ...FieldError) error {
	return &ValidationError{Err: err, Fields: fields}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown marks an unrecoverable infrastructure failure, such as a lost
// database connection. The API error handler signals a graceful stop when it
// catches one.
type shutdown struct {
	err error
}

func NewShutdownError(err error) error {
	return &shutdown{err: err}
}

func (s shutdown) Error() string {
	return s.err.Error()
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
