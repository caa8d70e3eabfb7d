package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCompanyType is returned when no vocabulary label occurs in a line
	ErrUnknownCompanyType = errors.New("no known company type")
	// ErrMissingDelimiter is returned when a delimiter token a field depends on is absent
	ErrMissingDelimiter = errors.New("missing delimiter")
	// ErrMalformedField is returned when a field is present but empty or too short
	ErrMalformedField = errors.New("malformed field")
)

// FieldError reports which field of a record line could not be extracted
type FieldError struct {
	Field string
	Line  string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func missing(field, line, delimiter string) error {
	return &FieldError{Field: field, Line: line, Err: fmt.Errorf("%w %q", ErrMissingDelimiter, delimiter)}
}

func malformed(field, line, reason string) error {
	return &FieldError{Field: field, Line: line, Err: fmt.Errorf("%w: %s", ErrMalformedField, reason)}
}
