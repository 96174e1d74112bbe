// Package issuer models an issuing authority's published profile.
//
// Profile is a closed variant over the supported schema versions. Version-specific
// field names and defaults live in the parser; this package only guards the
// invariants shared by every version.
//
// Domain Purity: no I/O, no context.Context and no time.Now() calls.
package issuer

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"certwallet/internal/wallet/domain/shared"
)

// Version tags the schema a profile was published with.
type Version string

const (
	VersionEmbedded Version = "embedded"
	VersionV1       Version = "v1"
	VersionV2       Version = "v2"
)

// Known reports whether v is a supported schema version.
func (v Version) Known() bool {
	switch v {
	case VersionEmbedded, VersionV1, VersionV2:
		return true
	}
	return false
}

// SupportsKeys reports whether the schema publishes key rotations.
func (v Version) SupportsKeys() bool {
	return v == VersionV1 || v == VersionV2
}

// IntroductionMethod is how a recipient establishes trust with the issuer.
type IntroductionMethod string

const (
	IntroductionNone    IntroductionMethod = "none"
	IntroductionWeb     IntroductionMethod = "web"
	IntroductionAPI     IntroductionMethod = "api"
	IntroductionUnknown IntroductionMethod = "unknown"
)

// ParseIntroductionMethod maps a published value to a method; unrecognised values are IntroductionUnknown.
func ParseIntroductionMethod(s string) IntroductionMethod {
	switch m := IntroductionMethod(s); m {
	case IntroductionNone, IntroductionWeb, IntroductionAPI:
		return m
	}
	return IntroductionUnknown
}

// Introduction pairs the method with its endpoint, if any.
type Introduction struct {
	Method IntroductionMethod
	URL    string
}

var (
	errUnknownVersion     = errors.New("unknown issuer version")
	errMissingName        = errors.New("name is required")
	errMissingEmail       = errors.New("email is required")
	errMissingImage       = errors.New("image is required")
	errKeysNotSupported   = errors.New("version does not publish keys")
	errMultipleCurrentKey = errors.New("more than one current key")
)

// Identity is the display identity every version carries.
type Identity struct {
	ID    string
	Name  string
	Email string
	URL   string
	Image shared.Image
}

// Profile is an issuer's published profile.
//
// Invariants:
//   - ID and URL are absolute URIs
//   - Name, Email and Image are present
//   - RevocationList is empty or an absolute URI
//   - Keys are ordered by creation time and at most one is current
//   - Embedded profiles carry no keys
type Profile struct {
	version        Version
	identity       Identity
	revocationList string
	introduction   Introduction
	keys           []KeyRotation
}

// New creates a profile with validated invariants. keys is copied and sorted.
func New(version Version, identity Identity, revocationList string, intro Introduction, keys []KeyRotation) (*Profile, error) {
	if !version.Known() {
		return nil, fmt.Errorf("%w: %q", errUnknownVersion, version)
	}
	if err := RequireURI(identity.ID); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if err := RequireURI(identity.URL); err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}
	if identity.Name == "" {
		return nil, errMissingName
	}
	if identity.Email == "" {
		return nil, errMissingEmail
	}
	if identity.Image.IsZero() {
		return nil, errMissingImage
	}
	if revocationList != "" {
		if err := RequireURI(revocationList); err != nil {
			return nil, fmt.Errorf("revocationList: %w", err)
		}
	}
	if len(keys) > 0 && !version.SupportsKeys() {
		return nil, errKeysNotSupported
	}
	if intro.Method == "" {
		intro.Method = IntroductionUnknown
	}

	var sorted []KeyRotation
	if len(keys) > 0 {
		sorted = slices.Clone(keys)
		sortByCreated(sorted)
	}
	current := 0
	for _, k := range sorted {
		if err := k.validate(); err != nil {
			return nil, err
		}
		if k.IsCurrent() {
			current++
		}
	}
	if current > 1 {
		return nil, errMultipleCurrentKey
	}

	return &Profile{
		version:        version,
		identity:       identity,
		revocationList: revocationList,
		introduction:   intro,
		keys:           sorted,
	}, nil
}

func (p *Profile) Version() Version {
	return p.version
}

func (p *Profile) ID() string {
	return p.identity.ID
}

func (p *Profile) Name() string {
	return p.identity.Name
}

func (p *Profile) Email() string {
	return p.identity.Email
}

func (p *Profile) URL() string {
	return p.identity.URL
}

func (p *Profile) Image() shared.Image {
	return p.identity.Image
}

// RevocationList returns the revocation list URI, empty when the issuer opts out.
func (p *Profile) RevocationList() string {
	return p.revocationList
}

func (p *Profile) Introduction() Introduction {
	return p.introduction
}

// Keys returns a copy of the key rotations ordered by creation time.
func (p *Profile) Keys() []KeyRotation {
	return slices.Clone(p.keys)
}

// KeyAt selects the key valid at t. Among rotations whose interval contains t the most
// recently created wins. When none covers t the single current key is used.
func (p *Profile) KeyAt(t time.Time) (KeyRotation, bool) {
	for i := len(p.keys) - 1; i >= 0; i-- {
		if p.keys[i].Covers(t) {
			return p.keys[i], true
		}
	}
	for i := len(p.keys) - 1; i >= 0; i-- {
		if p.keys[i].IsCurrent() {
			return p.keys[i], true
		}
	}
	return KeyRotation{}, false
}

// RequireURI checks that s is an absolute URI with a scheme.
func RequireURI(s string) error {
	if s == "" {
		return errors.New("empty uri")
	}
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return fmt.Errorf("uri %q has no scheme", s)
	}
	if u.Opaque == "" && u.Host == "" && u.Path == "" {
		return fmt.Errorf("uri %q is empty after the scheme", s)
	}
	return nil
}
