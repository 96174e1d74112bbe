// Package credential defines the parsed credential ("certificate") held by the wallet.
//
// Aggregate: Credential is immutable after New. The parser is the only producer;
// the wallet service and verification read it through accessors.
//
// Domain Purity: no I/O, no context.Context and no time.Now() calls.
package credential

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/domain/shared"
)

// Version tags the credential document schema.
type Version string

const (
	VersionLegacy Version = "legacy"
	VersionV2     Version = "v2"
)

func (v Version) Known() bool {
	return v == VersionLegacy || v == VersionV2
}

var (
	errUnknownVersion   = errors.New("unknown credential version")
	errMissingUID       = errors.New("uid is required")
	errMissingIssuedOn  = errors.New("issuedOn is required")
	errMissingIssuer    = errors.New("issuer reference is required")
	errEmbeddedMismatch = errors.New("embedded issuer does not match issuer reference")
	errMissingRecipient = errors.New("recipient identity is required")
	errMissingSignImage = errors.New("signature image is required")
)

// IssuerRef points at the issuer profile. Legacy credentials also embed a partial profile.
type IssuerRef struct {
	URI      string
	Embedded *issuer.Profile
}

// Fields are the assertion values extracted by the parser.
type Fields struct {
	ID             string
	UID            string
	IssuedOn       time.Time
	Evidence       string
	Recipient      string
	Issuer         IssuerRef
	SignatureImage shared.Image
	Signature      []byte // proof JSON, verbatim
}

// Credential is a structurally valid claim document.
//
// Invariants:
//   - ID is an absolute URI
//   - UID and IssuedOn are present
//   - Issuer.URI is an absolute URI and matches the embedded profile, if any
//   - v2 credentials name a recipient; legacy credentials carry a signature image
type Credential struct {
	version Version
	fields  Fields
}

// New creates a credential with validated invariants.
func New(version Version, f Fields) (*Credential, error) {
	if !version.Known() {
		return nil, fmt.Errorf("%w: %q", errUnknownVersion, version)
	}
	if err := issuer.RequireURI(f.ID); err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	if f.UID == "" {
		return nil, errMissingUID
	}
	if f.IssuedOn.IsZero() {
		return nil, errMissingIssuedOn
	}
	if f.Issuer.URI == "" {
		return nil, errMissingIssuer
	}
	if err := issuer.RequireURI(f.Issuer.URI); err != nil {
		return nil, fmt.Errorf("issuer: %w", err)
	}
	if f.Issuer.Embedded != nil && f.Issuer.Embedded.ID() != f.Issuer.URI {
		return nil, errEmbeddedMismatch
	}
	switch version {
	case VersionV2:
		if f.Recipient == "" {
			return nil, errMissingRecipient
		}
	case VersionLegacy:
		if f.SignatureImage.IsZero() {
			return nil, errMissingSignImage
		}
	}

	f.Signature = bytes.Clone(f.Signature)
	return &Credential{version: version, fields: f}, nil
}

func (c *Credential) Version() Version {
	return c.version
}

// ID returns the credential's globally unique URI.
func (c *Credential) ID() string {
	return c.fields.ID
}

func (c *Credential) UID() string {
	return c.fields.UID
}

func (c *Credential) IssuedOn() time.Time {
	return c.fields.IssuedOn
}

func (c *Credential) Evidence() string {
	return c.fields.Evidence
}

// Recipient returns the recipient identity, empty when a legacy credential omits it.
func (c *Credential) Recipient() string {
	return c.fields.Recipient
}

func (c *Credential) Issuer() IssuerRef {
	return c.fields.Issuer
}

func (c *Credential) SignatureImage() shared.Image {
	return c.fields.SignatureImage
}

// Signature returns a copy of the proof JSON, nil when absent.
func (c *Credential) Signature() []byte {
	return bytes.Clone(c.fields.Signature)
}

// Filename is the storage key for the credential.
func (c *Credential) Filename() string {
	return FilenameFor(c.fields.ID)
}

// FilenameFor derives a storage filename from a credential identifier by replacing
// path separators.
func FilenameFor(id string) string {
	return strings.ReplaceAll(id, "/", "_")
}
