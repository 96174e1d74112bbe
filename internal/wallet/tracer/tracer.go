// Package tracer provides a lightweight tracing abstraction for the wallet trust pipeline.
//
// Parsing, issuer resolution, revocation checks and remote fetches open spans
// through this interface so the wallet packages never import OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a new span with the given name and attributes.
	//
	// Example:
	//   ctx, span := tr.Start(ctx, tracer.SpanResolve,
	//       tracer.String(tracer.AttrIssuer, uri),
	//   )
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashRecipient returns a truncated SHA-256 of a recipient identity so traces
// can be correlated without carrying the raw identity (usually an email).
func HashRecipient(identity string) string {
	if identity == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the wallet.
const (
	SpanFetch      = "wallet.fetch"
	SpanParse      = "wallet.parse"
	SpanResolve    = "wallet.issuer.resolve"
	SpanRevocation = "wallet.revocation.check"
	SpanImport     = "wallet.import"
	SpanVerify     = "wallet.verify"
)

// Attribute keys used by the wallet.
const (
	AttrURI         = "fetch.uri"
	AttrFetchKind   = "fetch.kind"
	AttrBytes       = "fetch.bytes"
	AttrIssuer      = "issuer.id"
	AttrIssuerVer   = "issuer.version"
	AttrCacheHit    = "cache.hit"
	AttrShared      = "singleflight.shared"
	AttrCredential  = "credential.id"
	AttrRecipient   = "credential.recipient_hash"
	AttrVerdict     = "verification.verdict"
	AttrRevocation  = "revocation.state"
	AttrImportState = "import.outcome"
)

// Event names used by the wallet.
const (
	EventCachePopulated = "issuer.cache.populated"
	EventRetry          = "fetch.retry"
)
