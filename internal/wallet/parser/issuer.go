package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/domain/shared"
	"certwallet/internal/wallet/tracer"
)

// Issuer profile field names.
const (
	fieldID             = "id"
	fieldName           = "name"
	fieldEmail          = "email"
	fieldImage          = "image"
	fieldURL            = "url"
	fieldRevocationList = "revocationList"
	fieldIntroURL       = "introductionURL"
	fieldIntroMethod    = "introductionAuthenticationMethod"
	fieldIssuerKeys     = "issuerKeys"
	fieldPublicKey      = "publicKey"
)

var errRemoteImagesDisabled = errors.New("remote images are not enabled")

// ParseIssuer parses an issuer profile document. Remote images are fetched only
// after every other field has been extracted successfully.
func (p *Parser) ParseIssuer(ctx context.Context, doc map[string]any) (profile *issuer.Profile, err error) {
	ctx, span := p.tracer.Start(ctx, tracer.SpanParse, tracer.String("document", docIssuer))
	defer func() {
		if err != nil {
			p.logFailure(ctx, docIssuer, err)
		}
		span.End(err)
	}()

	version, err := DetectIssuerVersion(doc)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrIssuerVer, string(version)))

	x := newExtractor(doc, "")
	pending := collectIssuer(x, version)
	if x.failed() {
		return nil, x.result(docIssuer)
	}
	profile = p.buildIssuer(ctx, x, pending)
	if err := x.result(docIssuer); err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrIssuer, profile.ID()))
	return profile, nil
}

// ParseIssuerBytes decodes raw JSON and parses it as an issuer profile.
func (p *Parser) ParseIssuerBytes(ctx context.Context, raw []byte) (*issuer.Profile, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	return p.ParseIssuer(ctx, doc)
}

// pendingIssuer holds extracted fields whose image has not been loaded yet.
type pendingIssuer struct {
	version        issuer.Version
	identity       issuer.Identity
	imageRef       string
	revocationList string
	introduction   issuer.Introduction
	keys           []issuer.KeyRotation
}

func collectIssuer(x *extractor, version issuer.Version) pendingIssuer {
	pi := pendingIssuer{
		version: version,
		identity: issuer.Identity{
			ID:    x.requiredURI(fieldID),
			Name:  x.requiredString(fieldName),
			Email: x.requiredString(fieldEmail),
			URL:   x.requiredURI(fieldURL),
		},
		imageRef:       x.requiredString(fieldImage),
		revocationList: x.optionalURI(fieldRevocationList),
	}

	switch version {
	case issuer.VersionEmbedded:
		pi.introduction = issuer.Introduction{Method: issuer.IntroductionUnknown}
	case issuer.VersionV1:
		pi.introduction = issuer.Introduction{Method: issuer.IntroductionNone}
		if u := x.optionalURI(fieldIntroURL); u != "" {
			pi.introduction = issuer.Introduction{Method: issuer.IntroductionWeb, URL: u}
		}
		pi.keys = v1Keys(x)
	case issuer.VersionV2:
		pi.introduction = issuer.Introduction{Method: issuer.IntroductionNone, URL: x.optionalURI(fieldIntroURL)}
		if m, ok := x.optionalString(fieldIntroMethod); ok {
			pi.introduction.Method = issuer.ParseIntroductionMethod(m)
		}
		pi.keys = v2Keys(x)
	}
	return pi
}

// buildIssuer loads the image and constructs the profile, recording failures on x.
func (p *Parser) buildIssuer(ctx context.Context, x *extractor, pi pendingIssuer) *issuer.Profile {
	img, err := p.loadImage(ctx, pi.imageRef)
	if err != nil {
		x.invalid(fieldImage, err)
		return nil
	}
	pi.identity.Image = img

	profile, err := issuer.New(pi.version, pi.identity, pi.revocationList, pi.introduction, pi.keys)
	if err != nil {
		// Identity fields were validated during collection, so only key rotations can fail here.
		x.invalid(keysField(pi.version), err)
		return nil
	}
	return profile
}

func keysField(v issuer.Version) string {
	if v == issuer.VersionV1 {
		return fieldIssuerKeys
	}
	return fieldPublicKey
}

// v1Keys reads issuerKeys: [{key, date}]. Each key is valid until the next one's date.
func v1Keys(x *extractor) []issuer.KeyRotation {
	entries, ok := x.list(fieldIssuerKeys)
	if !ok {
		return nil
	}
	keys := make([]issuer.KeyRotation, 0, len(entries))
	var errs []error
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, errNotObject))
			continue
		}
		ex := newExtractor(m, fmt.Sprintf("%s[%d].", fieldIssuerKeys, i))
		k := issuer.KeyRotation{
			Key:     ex.requiredString("key"),
			Created: ex.requiredTime("date"),
		}
		if ex.failed() {
			errs = append(errs, ex.errs...)
			continue
		}
		keys = append(keys, k)
	}
	if len(errs) > 0 {
		x.invalid(fieldIssuerKeys, errors.Join(errs...))
		return nil
	}
	return issuer.ImplicitRotations(keys)
}

// v2Keys reads publicKey: [{id, created, expires?, revoked?}].
func v2Keys(x *extractor) []issuer.KeyRotation {
	entries, ok := x.list(fieldPublicKey)
	if !ok {
		return nil
	}
	keys := make([]issuer.KeyRotation, 0, len(entries))
	var errs []error
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, errNotObject))
			continue
		}
		ex := newExtractor(m, fmt.Sprintf("%s[%d].", fieldPublicKey, i))
		k := issuer.KeyRotation{
			Key:     ex.requiredString("id"),
			Created: ex.requiredTime("created"),
			Expires: optionalTime(ex, "expires"),
			Revoked: optionalTime(ex, "revoked"),
		}
		if ex.failed() {
			errs = append(errs, ex.errs...)
			continue
		}
		keys = append(keys, k)
	}
	if len(errs) > 0 {
		x.invalid(fieldPublicKey, errors.Join(errs...))
		return nil
	}
	return keys
}

func optionalTime(x *extractor, key string) *time.Time {
	s, ok := x.optionalString(key)
	if !ok {
		return nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		x.invalid(key, err)
		return nil
	}
	return &t
}

// loadImage decodes a data URI or fetches a remote image. Any failure is reported by
// the caller as an invalid field, never a missing one.
func (p *Parser) loadImage(ctx context.Context, ref string) (shared.Image, error) {
	if shared.IsDataURI(ref) {
		return shared.ParseDataURI(ref)
	}
	if err := issuer.RequireURI(ref); err != nil {
		return shared.Image{}, err
	}
	if p.images == nil {
		return shared.Image{}, errRemoteImagesDisabled
	}
	body, err := p.images.Fetch(ctx, ref)
	if err != nil {
		return shared.Image{}, err
	}
	return shared.ImageFromBytes(body)
}
