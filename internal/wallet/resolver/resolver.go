// Package resolver maps issuer references to cached, validated issuer profiles
// and selects the signing key valid at a point in time.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/parser"
	"certwallet/internal/wallet/tracer"
	dErrors "certwallet/pkg/domain-errors"
)

// ErrNoValidKey is returned when no key rotation covers the requested instant
// and the issuer publishes no current key.
var ErrNoValidKey = dErrors.New(dErrors.CodeNoValidKey, "issuer has no key valid at the requested time")

// Resolution is a resolved issuer profile and the key valid at the requested instant.
type Resolution struct {
	Profile *issuer.Profile
	Key     issuer.KeyRotation
}

// Resolver resolves issuer references through a cache. At most one fetch is in
// flight per issuer URI and refresh generation; concurrent callers for the same
// URI share its result.
type Resolver struct {
	fetcher fetch.Fetcher
	parser  *parser.Parser
	cache   Cache
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer

	// genMu guards the refresh generations and orders cache writes after
	// a refresh. A flight only caches its profile if no refresh touched its
	// URI since the flight started.
	genMu  sync.Mutex
	epoch  uint64
	perURI map[string]uint64
}

type Option func(*Resolver)

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// New creates a resolver that fetches issuer documents with f and parses them with p.
func New(f fetch.Fetcher, p *parser.Parser, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: f,
		parser:  p,
		perURI:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemoryCache()
	}
	if r.tracer == nil {
		r.tracer = tracer.NewNoop()
	}
	return r
}

// Resolve returns the issuer profile for uri and the key valid at asOf.
//
// Errors: invalid_input for a malformed reference; fetch and parse errors from
// loading the profile; ErrNoValidKey when no key fits asOf.
func (r *Resolver) Resolve(ctx context.Context, uri string, asOf time.Time) (res Resolution, err error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanResolve, tracer.String(tracer.AttrIssuer, uri))
	defer func() { span.End(err) }()

	profile, err := r.Profile(ctx, uri)
	if err != nil {
		return Resolution{}, err
	}
	span.SetAttributes(tracer.String(tracer.AttrIssuerVer, string(profile.Version())))

	key, ok := profile.KeyAt(asOf)
	if !ok {
		return Resolution{Profile: profile}, ErrNoValidKey
	}
	return Resolution{Profile: profile, Key: key}, nil
}

// Profile returns the cached profile for uri, fetching and parsing it on a miss.
func (r *Resolver) Profile(ctx context.Context, uri string) (*issuer.Profile, error) {
	if err := issuer.RequireURI(uri); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid issuer reference")
	}
	if profile, ok := r.lookup(ctx, uri); ok {
		r.recordHit()
		return profile, nil
	}
	r.recordMiss()

	for {
		gen := r.generation(uri)
		ch := r.group.DoChan(flightKey(uri, gen), func() (any, error) {
			return r.load(ctx, uri, gen)
		})
		select {
		case <-ctx.Done():
			return nil, fetch.NewFetchError(fetch.ErrorCancelled, uri, "issuer resolution cancelled", ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				// The flight ran under another caller's context. If that caller
				// went away and we did not, try again under our own.
				if res.Shared && isCancelled(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*issuer.Profile), nil
		}
	}
}

// load runs inside the flight for uri started at refresh generation gen.
func (r *Resolver) load(ctx context.Context, uri string, gen uint64) (*issuer.Profile, error) {
	// A flight that started just after another populated the cache must not refetch.
	if profile, ok := r.lookup(ctx, uri); ok {
		return profile, nil
	}

	raw, err := r.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("fetch issuer profile: %w", err)
	}
	profile, err := r.parser.ParseIssuerBytes(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("resolve issuer %s: %w", uri, err)
	}
	if profile.ID() != uri {
		return nil, fmt.Errorf("resolve issuer %s: %w", uri, &parser.ParseError{Document: "issuer profile", Errors: []error{
			parser.Invalid("id", fmt.Errorf("profile declares %q", profile.ID())),
		}})
	}
	if err := ctx.Err(); err != nil {
		return nil, fetch.NewFetchError(fetch.ErrorCancelled, uri, "issuer resolution cancelled", err)
	}

	cached, err := r.store(ctx, uri, gen, profile)
	if err != nil {
		// The profile is still valid; the next caller simply refetches.
		r.logError(ctx, "failed to cache issuer profile", uri, err)
	} else if cached && r.logger != nil {
		r.logger.InfoContext(ctx, "issuer profile cached",
			"issuer", uri,
			"version", profile.Version(),
			"keys", len(profile.Keys()),
		)
	}
	return profile, nil
}

// store caches profile unless a refresh of uri happened after gen was taken.
// Waiting callers still receive the profile either way.
func (r *Resolver) store(ctx context.Context, uri string, gen uint64, profile *issuer.Profile) (bool, error) {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	if r.epoch+r.perURI[uri] != gen {
		return false, nil
	}
	if err := r.cache.Put(ctx, uri, profile); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Resolver) generation(uri string) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.epoch + r.perURI[uri]
}

func flightKey(uri string, gen uint64) string {
	return strconv.FormatUint(gen, 10) + " " + uri
}

func (r *Resolver) lookup(ctx context.Context, uri string) (*issuer.Profile, bool) {
	profile, err := r.cache.Get(ctx, uri)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			r.logError(ctx, "issuer cache lookup failed", uri, err)
		}
		return nil, false
	}
	return profile, true
}

// Refresh purges the cached profile for uri, forcing the next resolution to refetch.
// An empty uri purges every cached profile.
func (r *Resolver) Refresh(ctx context.Context, uri string) error {
	if uri == "" {
		return r.RefreshAll(ctx)
	}
	r.genMu.Lock()
	r.perURI[uri]++
	r.genMu.Unlock()
	if err := r.cache.Delete(ctx, uri); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh issuer profile")
	}
	if r.metrics != nil {
		r.metrics.RecordRefresh("one")
	}
	return nil
}

// RefreshAll purges every cached profile.
func (r *Resolver) RefreshAll(ctx context.Context) error {
	r.genMu.Lock()
	r.epoch++
	r.genMu.Unlock()
	if err := r.cache.Purge(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh issuer profiles")
	}
	if r.metrics != nil {
		r.metrics.RecordRefresh("all")
	}
	if r.logger != nil {
		r.logger.InfoContext(ctx, "issuer cache purged")
	}
	return nil
}

func (r *Resolver) recordHit() {
	if r.metrics != nil {
		r.metrics.RecordCacheHit()
	}
}

func (r *Resolver) recordMiss() {
	if r.metrics != nil {
		r.metrics.RecordCacheMiss()
	}
}

func (r *Resolver) logError(ctx context.Context, msg, uri string, err error) {
	if r.logger != nil {
		r.logger.ErrorContext(ctx, msg, "issuer", uri, "error", err)
	}
}

func isCancelled(err error) bool {
	return fetch.GetCategory(err) == fetch.ErrorCancelled || errors.Is(err, context.Canceled)
}
