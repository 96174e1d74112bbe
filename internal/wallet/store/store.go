// Package store persists raw credential documents keyed by filename.
package store

import (
	"context"
	"errors"
	"strings"

	dErrors "certwallet/pkg/domain-errors"
)

// ErrNotFound is returned when no credential is stored under the filename.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "certificate not found")

var errInvalidFilename = errors.New("invalid filename")

// Store is durable keyed storage of raw credential bytes.
//
// Save never overwrites: it reports false and leaves the stored bytes untouched
// when the filename already exists. List returns filenames in lexical order.
type Store interface {
	Save(ctx context.Context, filename string, data []byte) (bool, error)
	Read(ctx context.Context, filename string) ([]byte, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, filename string) error
}

// ValidateFilename rejects names that could escape a storage directory.
func ValidateFilename(filename string) error {
	switch {
	case filename == "", filename == ".", filename == "..":
		return dErrors.Wrap(errInvalidFilename, dErrors.CodeInvalidInput, "filename is required")
	case strings.ContainsAny(filename, "/\\\x00"):
		return dErrors.Wrap(errInvalidFilename, dErrors.CodeInvalidInput, "filename must not contain path separators")
	case strings.HasPrefix(filename, "."):
		return dErrors.Wrap(errInvalidFilename, dErrors.CodeInvalidInput, "filename must not start with a dot")
	}
	return nil
}
