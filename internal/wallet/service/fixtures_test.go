package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/domain/shared"
	"certwallet/internal/wallet/events"
	"certwallet/internal/wallet/resolver"
	"certwallet/internal/wallet/revocation"
	"certwallet/internal/wallet/store"
)

const issuerURI = "https://issuer.example.org/profile.json"

var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPixel)

func v2CredentialJSON(t *testing.T, id, evidence string) []byte {
	t.Helper()
	doc := map[string]any{
		"@context":       []any{"https://w3id.org/openbadges/v2", "https://w3id.org/blockcerts/v2"},
		"type":           "Assertion",
		"id":             id,
		"uid":            "uid-" + id,
		"issuedOn":       "2021-06-01T00:00:00Z",
		"evidence":       evidence,
		"recipient":      map[string]any{"identity": "alice@example.org"},
		"issuer":         issuerURI,
		"signatureImage": pngDataURI,
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func legacyCredentialJSON(t *testing.T, id string) []byte {
	t.Helper()
	doc := map[string]any{
		"assertion": map[string]any{
			"uid":             "legacy-uid",
			"id":              id,
			"issuedOn":        "2016-04-01",
			"evidence":        "completed the course",
			"image:signature": pngDataURI,
		},
		"recipient": map[string]any{"identity": "alice@example.org"},
		"certificate": map[string]any{
			"issuer": map[string]any{
				"id":             issuerURI,
				"name":           "Example University",
				"email":          "registrar@example.org",
				"image":          pngDataURI,
				"url":            "https://example.org",
				"revocationList": "https://issuer.example.org/revocations.json",
			},
		},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func v2Profile(t *testing.T) *issuer.Profile {
	t.Helper()
	img, err := shared.ImageFromBytes(pngPixel)
	require.NoError(t, err)
	p, err := issuer.New(issuer.VersionV2, issuer.Identity{
		ID:    issuerURI,
		Name:  "Example University",
		Email: "registrar@example.org",
		URL:   "https://example.org",
		Image: img,
	}, "https://issuer.example.org/revocations.json", issuer.Introduction{Method: issuer.IntroductionWeb}, []issuer.KeyRotation{
		{Key: "ecdsa-koblitz-pubkey:k1", Created: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return p
}

type stubResolver struct {
	mu        sync.Mutex
	res       resolver.Resolution
	err       error
	calls     int
	refreshed []string
}

func (r *stubResolver) Resolve(_ context.Context, _ string, _ time.Time) (resolver.Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.res, r.err
}

func (r *stubResolver) Refresh(_ context.Context, uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, uri)
	return nil
}

type stubChecker struct {
	status  revocation.Status
	profile *issuer.Profile
}

func (c *stubChecker) Check(_ context.Context, _ string, p *issuer.Profile) revocation.Status {
	c.profile = p
	return c.status
}

// brokenDeleteStore fails every Delete with err.
type brokenDeleteStore struct {
	store.Store
	err error
}

func (s *brokenDeleteStore) Delete(context.Context, string) error {
	return s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ImportEvent
}

func (p *recordingPublisher) PublishImport(_ context.Context, e events.ImportEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// gatedStore holds every Read of gate until release is closed.
type gatedStore struct {
	*store.MemoryStore
	gate    string
	started chan struct{}
	release chan struct{}
}

func newGatedStore(gate string) *gatedStore {
	return &gatedStore{
		MemoryStore: store.NewMemoryStore(),
		gate:        gate,
		started:     make(chan struct{}, 1),
		release:     make(chan struct{}),
	}
}

func (s *gatedStore) Read(ctx context.Context, filename string) ([]byte, error) {
	if filename == s.gate {
		select {
		case s.started <- struct{}{}:
		default:
		}
		<-s.release
	}
	return s.MemoryStore.Read(ctx, filename)
}
