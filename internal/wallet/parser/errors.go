package parser

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is against any parse failure.
var (
	ErrMissingField       = errors.New("missing field")
	ErrInvalidField       = errors.New("invalid field")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrMalformedDocument  = errors.New("malformed document")
)

// FieldErrorKind separates an absent field from one that is present but unusable.
type FieldErrorKind string

const (
	KindMissing FieldErrorKind = "missing"
	KindInvalid FieldErrorKind = "invalid"
)

// FieldError identifies the field that failed extraction.
type FieldError struct {
	Field string
	Kind  FieldErrorKind
	Err   error
}

// Missing reports an absent mandatory field.
func Missing(field string) *FieldError {
	return &FieldError{Field: field, Kind: KindMissing}
}

// Invalid reports a field that is present but malformed or could not be fetched.
func Invalid(field string, err error) *FieldError {
	return &FieldError{Field: field, Kind: KindInvalid, Err: err}
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s field %q: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("%s field %q", e.Kind, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is matches ErrMissingField or ErrInvalidField according to Kind.
func (e *FieldError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Kind == KindMissing
	case ErrInvalidField:
		return e.Kind == KindInvalid
	}
	return false
}

// VersionError reports a version tag the parser has no branch for.
type VersionError struct {
	Document string
	Version  string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version %q", e.Document, e.Version)
}

func (e *VersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// ParseError aggregates every field failure found in one document.
// errors.As(err, &fieldErr) yields the first one.
type ParseError struct {
	Document string
	Errors   []error
}

func (e *ParseError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("parse %s: %s", e.Document, strings.Join(msgs, "; "))
}

func (e *ParseError) Unwrap() []error {
	return e.Errors
}

// Fields lists the names of every failing field in order.
func (e *ParseError) Fields() []string {
	var fields []string
	for _, err := range e.Errors {
		var fe *FieldError
		if errors.As(err, &fe) {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

// FieldOf returns the first failing field of err, or "" when err has none.
func FieldOf(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}
