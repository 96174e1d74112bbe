package parser

import (
	"errors"
	"fmt"
	"time"

	"certwallet/internal/wallet/domain/issuer"
)

const dateOnly = "2006-01-02"

var (
	errNotString = errors.New("not a string")
	errEmpty     = errors.New("empty value")
	errNotObject = errors.New("not an object")
	errNotList   = errors.New("not a list")
)

// extractor pulls typed fields out of a generic document, recording a FieldError
// for every failure instead of stopping at the first one.
type extractor struct {
	doc    map[string]any
	prefix string
	errs   []error
}

func newExtractor(doc map[string]any, prefix string) *extractor {
	return &extractor{doc: doc, prefix: prefix}
}

func (x *extractor) name(key string) string {
	return x.prefix + key
}

func (x *extractor) missing(key string) {
	x.errs = append(x.errs, Missing(x.name(key)))
}

func (x *extractor) invalid(key string, err error) {
	x.errs = append(x.errs, Invalid(x.name(key), err))
}

func (x *extractor) failed() bool {
	return len(x.errs) > 0
}

// absorb appends another extractor's errors, which already carry their own prefix.
func (x *extractor) absorb(other *extractor) {
	x.errs = append(x.errs, other.errs...)
}

func (x *extractor) result(document string) error {
	if len(x.errs) == 0 {
		return nil
	}
	return &ParseError{Document: document, Errors: x.errs}
}

func (x *extractor) present(key string) bool {
	v, ok := x.doc[key]
	return ok && v != nil
}

func (x *extractor) requiredString(key string) string {
	s, ok := x.optionalString(key)
	if !ok && !x.present(key) {
		x.missing(key)
	}
	return s
}

// optionalString returns ok=false when the key is absent or unusable; unusable values are recorded.
func (x *extractor) optionalString(key string) (string, bool) {
	if !x.present(key) {
		return "", false
	}
	s, ok := x.doc[key].(string)
	if !ok {
		x.invalid(key, errNotString)
		return "", false
	}
	if s == "" {
		x.invalid(key, errEmpty)
		return "", false
	}
	return s, true
}

func (x *extractor) requiredURI(key string) string {
	s := x.requiredString(key)
	if s == "" {
		return ""
	}
	if err := issuer.RequireURI(s); err != nil {
		x.invalid(key, err)
		return ""
	}
	return s
}

func (x *extractor) optionalURI(key string) string {
	s, ok := x.optionalString(key)
	if !ok {
		return ""
	}
	if err := issuer.RequireURI(s); err != nil {
		x.invalid(key, err)
		return ""
	}
	return s
}

func (x *extractor) requiredTime(key string) time.Time {
	s := x.requiredString(key)
	if s == "" {
		return time.Time{}
	}
	t, err := parseTimestamp(s)
	if err != nil {
		x.invalid(key, err)
	}
	return t
}

func (x *extractor) object(key string, required bool) (map[string]any, bool) {
	if !x.present(key) {
		if required {
			x.missing(key)
		}
		return nil, false
	}
	m, ok := x.doc[key].(map[string]any)
	if !ok {
		x.invalid(key, errNotObject)
		return nil, false
	}
	return m, true
}

func (x *extractor) list(key string) ([]any, bool) {
	if !x.present(key) {
		return nil, false
	}
	l, ok := x.doc[key].([]any)
	if !ok {
		x.invalid(key, errNotList)
		return nil, false
	}
	return l, true
}

// parseTimestamp accepts RFC 3339 timestamps and bare dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	return t, nil
}
