// Package parser turns generic key-value documents into issuer profiles and credentials.
//
// Each document goes through an explicit version-detection step and then a
// version-specific extraction branch. Field failures are collected into one
// ParseError that distinguishes missing fields from malformed ones, so callers can
// tell "corrupt file" from "unsupported format".
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/tracer"
)

// Document names used in ParseError and traces.
const (
	docIssuer     = "issuer"
	docCredential = "credential"
)

// Parser is safe for concurrent use.
type Parser struct {
	images fetch.Fetcher
	logger *slog.Logger
	tracer tracer.Tracer
}

// Option configures a Parser.
type Option func(*Parser)

// WithImageFetcher enables remote image fields. Without it only data URIs are accepted
// and a remote image is an invalid field.
func WithImageFetcher(f fetch.Fetcher) Option {
	return func(p *Parser) {
		p.images = f
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *Parser) {
		p.tracer = t
	}
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	if p.tracer == nil {
		p.tracer = tracer.NewNoop()
	}
	return p
}

// decode unmarshals raw JSON into a generic document.
func decode(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrMalformedDocument)
	}
	return doc, nil
}

func (p *Parser) logFailure(ctx context.Context, document string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.DebugContext(ctx, "document rejected",
		"document", document,
		"field", FieldOf(err),
		"error", err,
	)
}
