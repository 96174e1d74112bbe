// Package revocation decides whether an issuer has revoked a credential.
//
// Checks never fail with an error: a list that cannot be fetched or parsed
// yields an Unknown status carrying the cause.
package revocation

import (
	"context"
	"fmt"
	"log/slog"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/tracer"
)

// Checker determines the revocation status of a credential issued by profile.
type Checker interface {
	Check(ctx context.Context, credentialID string, profile *issuer.Profile) Status
}

// ListChecker fetches the issuer's revocation list on every check.
type ListChecker struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

type Option func(*ListChecker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *ListChecker) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *ListChecker) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *ListChecker) {
		c.tracer = t
	}
}

func NewListChecker(f fetch.Fetcher, opts ...Option) *ListChecker {
	c := &ListChecker{fetcher: f}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	return c
}

// Check returns NotRevoked when the issuer publishes no revocation list.
func (c *ListChecker) Check(ctx context.Context, credentialID string, profile *issuer.Profile) (status Status) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRevocation,
		tracer.String(tracer.AttrCredential, credentialID),
	)
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrRevocation, string(status.State)))
		span.End(status.Cause)
		if c.metrics != nil {
			c.metrics.RecordRevocationVerdict(string(status.State))
		}
	}()

	if profile == nil {
		return Unknown(fmt.Errorf("no issuer profile for %s", credentialID))
	}
	listURI := profile.RevocationList()
	if listURI == "" {
		return NotRevoked()
	}
	span.SetAttributes(tracer.String(tracer.AttrURI, listURI))

	raw, err := c.fetcher.Fetch(ctx, listURI)
	if err != nil {
		c.logUnknown(ctx, credentialID, listURI, err)
		return Unknown(fmt.Errorf("fetch revocation list: %w", err))
	}
	list, err := ParseList(raw)
	if err != nil {
		c.logUnknown(ctx, credentialID, listURI, err)
		return Unknown(err)
	}

	if entry, ok := list.Lookup(credentialID); ok {
		if c.logger != nil {
			c.logger.InfoContext(ctx, "credential revoked",
				"credential_id", credentialID,
				"revocation_list", listURI,
				"reason", entry.Reason,
			)
		}
		return Revoked(entry.Reason, entry.RevokedAt)
	}
	return NotRevoked()
}

func (c *ListChecker) logUnknown(ctx context.Context, credentialID, listURI string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, "revocation status unknown",
			"credential_id", credentialID,
			"revocation_list", listURI,
			"error", err,
		)
	}
}
