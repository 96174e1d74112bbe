// Package fetch retrieves remote documents (images, issuer profiles, revocation lists)
// with bounded size, per-attempt timeouts and retry of transient failures.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/tracer"
)

// Kinds label fetches in metrics and traces.
const (
	KindImage      = "image"
	KindIssuer     = "issuer"
	KindRevocation = "revocation"
)

const (
	DefaultTimeout       = 10 * time.Second
	DefaultMaxBytes      = 5 << 20
	DefaultMaxRetries    = 2
	DefaultRetryInterval = 200 * time.Millisecond
)

// Fetcher retrieves the complete body at uri. There are no partial results:
// a call returns the full content or an error.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config bounds every fetch.
type Config struct {
	Timeout       time.Duration // per attempt
	MaxBytes      int64
	MaxRetries    int
	RetryInterval time.Duration
	UserAgent     string
}

// HTTPFetcher fetches http(s) URIs.
type HTTPFetcher struct {
	client  HTTPDoer
	cfg     Config
	kind    string
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithHTTPClient overrides the instrumented default client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *HTTPFetcher) {
		f.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(f *HTTPFetcher) {
		f.tracer = t
	}
}

// New creates an HTTPFetcher. Zero config values fall back to the package defaults.
func New(cfg Config, opts ...Option) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "certwallet"
	}

	f := &HTTPFetcher{
		cfg:  cfg,
		kind: KindIssuer,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if f.tracer == nil {
		f.tracer = tracer.NewNoop()
	}
	return f
}

// ForKind returns a copy of the fetcher that labels its metrics and spans with kind.
// The underlying client is shared.
func (f *HTTPFetcher) ForKind(kind string) *HTTPFetcher {
	cp := *f
	cp.kind = kind
	return &cp
}

// Fetch retrieves uri, retrying transient failures with exponential backoff.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) (body []byte, err error) {
	ctx, span := f.tracer.Start(ctx, tracer.SpanFetch,
		tracer.String(tracer.AttrURI, uri),
		tracer.String(tracer.AttrFetchKind, f.kind),
	)
	start := time.Now()
	defer func() {
		if f.metrics != nil {
			f.metrics.ObserveFetch(f.kind, time.Since(start))
			if err != nil {
				f.metrics.RecordFetchFailure(f.kind, string(GetCategory(err)))
			}
		}
		span.SetAttributes(tracer.Int64(tracer.AttrBytes, int64(len(body))))
		span.End(err)
	}()

	u, err := url.Parse(uri)
	if err != nil {
		return nil, NewFetchError(ErrorBadData, uri, "invalid uri", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, NewFetchError(ErrorBadData, uri, fmt.Sprintf("unsupported scheme %q", u.Scheme), nil)
	}

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			span.AddEvent(tracer.EventRetry, tracer.Int64("attempt", int64(attempt)))
		}
		b, fetchErr := f.fetchOnce(ctx, uri)
		if fetchErr != nil {
			if !IsRetryable(fetchErr) {
				return backoff.Permanent(fetchErr)
			}
			if f.logger != nil {
				f.logger.WarnContext(ctx, "retrying fetch",
					"uri", uri,
					"kind", f.kind,
					"attempt", attempt,
					"error", fetchErr,
				)
			}
			return fetchErr
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.cfg.RetryInterval
	policy.MaxElapsedTime = 0
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(f.cfg.MaxRetries)), ctx)

	if err := backoff.Retry(op, retry); err != nil {
		return nil, f.classifyContext(ctx, uri, err)
	}
	return body, nil
}

// classifyContext turns a bare context error returned by the retry loop into a FetchError.
func (f *HTTPFetcher) classifyContext(ctx context.Context, uri string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return NewFetchError(ErrorCancelled, uri, "fetch cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewFetchError(ErrorTimeout, uri, "fetch deadline exceeded", err)
	case ctx.Err() != nil:
		return NewFetchError(ErrorCancelled, uri, "fetch cancelled", ctx.Err())
	}
	return NewFetchError(ErrorInternal, uri, "fetch failed", err)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, uri string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, NewFetchError(ErrorInternal, uri, "failed to create request", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.Canceled):
			return nil, NewFetchError(ErrorCancelled, uri, "fetch cancelled", ctx.Err())
		case ctx.Err() != nil:
			return nil, NewFetchError(ErrorTimeout, uri, "caller deadline exceeded", ctx.Err())
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			return nil, NewFetchError(ErrorTimeout, uri, "request timeout", err)
		}
		return nil, NewFetchError(ErrorOutage, uri, "failed to execute request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil, NewFetchError(ErrorNotFound, uri, "document not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewFetchError(ErrorRateLimited, uri, "rate limit exceeded", nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, NewFetchError(ErrorOutage, uri, fmt.Sprintf("remote unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, NewFetchError(ErrorBadData, uri, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	if resp.ContentLength > f.cfg.MaxBytes {
		return nil, NewFetchError(ErrorTooLarge, uri,
			fmt.Sprintf("content length %d exceeds %d bytes", resp.ContentLength, f.cfg.MaxBytes), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, NewFetchError(ErrorTimeout, uri, "body read timeout", err)
		}
		return nil, NewFetchError(ErrorOutage, uri, "failed to read response", err)
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, NewFetchError(ErrorTooLarge, uri, fmt.Sprintf("body exceeds %d bytes", f.cfg.MaxBytes), nil)
	}
	return body, nil
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

func (fn FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return fn(ctx, uri)
}

var _ Fetcher = (*HTTPFetcher)(nil)
