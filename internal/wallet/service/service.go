// Package service is the wallet: it imports raw credential documents, keeps the
// in-memory list of loaded credentials in step with the store, and runs the
// trust pipeline (issuer resolution then revocation) on demand.
package service

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"certwallet/internal/wallet/domain/credential"
	"certwallet/internal/wallet/events"
	"certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/resolver"
	"certwallet/internal/wallet/revocation"
	"certwallet/internal/wallet/store"
	"certwallet/internal/wallet/tracer"
	dErrors "certwallet/pkg/domain-errors"
	psync "certwallet/pkg/platform/sync"
)

const defaultLoadConcurrency = 8

// CredentialParser turns raw bytes into a structurally valid credential.
type CredentialParser interface {
	ParseCredentialBytes(ctx context.Context, raw []byte) (*credential.Credential, error)
}

// IssuerResolver resolves issuer references to profiles and signing keys.
type IssuerResolver interface {
	Resolve(ctx context.Context, uri string, asOf time.Time) (resolver.Resolution, error)
	Refresh(ctx context.Context, uri string) error
}

// EventPublisher emits import outcomes.
type EventPublisher interface {
	PublishImport(ctx context.Context, event events.ImportEvent) error
}

// Entry is a loaded credential and the filename it is stored under.
type Entry struct {
	Filename   string
	Credential *credential.Credential
}

// Service owns the in-memory credential list. Mutations of one filename are
// serialized; the list itself is guarded by an RWMutex.
type Service struct {
	store      store.Store
	parser     CredentialParser
	resolver   IssuerResolver
	revocation revocation.Checker

	locks *psync.KeyedMutex
	mu    sync.RWMutex
	list  []Entry

	loadConcurrency int
	publisher       EventPublisher
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          tracer.Tracer
}

// Option configures the wallet service.
type Option func(*Service)

// WithLoadConcurrency bounds how many stored documents Load parses at once.
func WithLoadConcurrency(n int) Option {
	return func(s *Service) {
		s.loadConcurrency = n
	}
}

// WithPublisher publishes the outcome of every import.
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New creates a wallet service with the required dependencies.
func New(st store.Store, p CredentialParser, r IssuerResolver, rc revocation.Checker, opts ...Option) *Service {
	s := &Service{
		store:           st,
		parser:          p,
		resolver:        r,
		revocation:      rc,
		locks:           psync.NewKeyedMutex(),
		loadConcurrency: defaultLoadConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loadConcurrency < 1 {
		s.loadConcurrency = 1
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// List returns a snapshot of the loaded credentials in list order.
func (s *Service) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.list)
}

// Get returns the loaded credential stored under filename.
func (s *Service) Get(filename string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(filename); i >= 0 {
		return s.list[i], nil
	}
	return Entry{}, dErrors.New(dErrors.CodeNotFound, "certificate not found")
}

// Refresh purges the cached issuer profile for uri, or every profile when uri is empty.
func (s *Service) Refresh(ctx context.Context, uri string) error {
	return s.resolver.Refresh(ctx, uri)
}

// indexOf must be called with s.mu held.
func (s *Service) indexOf(filename string) int {
	return slices.IndexFunc(s.list, func(e Entry) bool {
		return e.Filename == filename
	})
}

// containsID must be called with s.mu held.
func (s *Service) containsID(id string) bool {
	return slices.ContainsFunc(s.list, func(e Entry) bool {
		return e.Credential.ID() == id
	})
}

// add appends e unless an entry with the same filename or credential ID is loaded.
func (s *Service) add(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(e.Filename) >= 0 || s.containsID(e.Credential.ID()) {
		return
	}
	s.list = append(s.list, e)
	s.reportSize()
}

// reportSize must be called with s.mu held.
func (s *Service) reportSize() {
	if s.metrics != nil {
		s.metrics.SetCredentials(len(s.list))
	}
}
