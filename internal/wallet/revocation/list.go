package revocation

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var listSchema []byte

var (
	// ErrInvalidList is returned when a revocation list does not match the schema.
	ErrInvalidList = errors.New("invalid revocation list")

	compileOnce sync.Once
	compiled    *gojsonschema.Schema
	compileErr  error
)

func schema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(listSchema))
	})
	return compiled, compileErr
}

// Entry is one revoked credential.
type Entry struct {
	ID        string     `json:"id"`
	Reason    string     `json:"revocationReason,omitempty"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// List is an issuer-published set of revoked credential identifiers.
type List struct {
	ID      string
	entries map[string]Entry
}

type listDocument struct {
	ID                string  `json:"id"`
	RevokedAssertions []Entry `json:"revokedAssertions"`
}

// ParseList validates raw against the revocation list schema and indexes its entries.
func ParseList(raw []byte) (*List, error) {
	s, err := schema()
	if err != nil {
		return nil, fmt.Errorf("compile revocation list schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}
	if !result.Valid() {
		msgs := lo.Map(result.Errors(), func(e gojsonschema.ResultError, _ int) string {
			return e.String()
		})
		return nil, fmt.Errorf("%w: %s", ErrInvalidList, strings.Join(msgs, "; "))
	}

	var doc listDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidList, err)
	}
	return &List{
		ID: doc.ID,
		entries: lo.KeyBy(doc.RevokedAssertions, func(e Entry) string {
			return e.ID
		}),
	}, nil
}

// Lookup returns the entry for credentialID, if the list revokes it.
func (l *List) Lookup(credentialID string) (Entry, bool) {
	e, ok := l.entries[credentialID]
	return e, ok
}

// Len returns the number of revoked credentials.
func (l *List) Len() int {
	return len(l.entries)
}
