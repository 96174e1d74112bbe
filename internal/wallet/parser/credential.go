package parser

import (
	"context"
	"encoding/json"

	"certwallet/internal/wallet/domain/credential"
	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/tracer"
)

// Credential field names.
const (
	fieldAssertion      = "assertion"
	fieldUID            = "uid"
	fieldIssuedOn       = "issuedOn"
	fieldEvidence       = "evidence"
	fieldLegacySigImage = "image:signature"
	fieldSignatureImage = "signatureImage"
	fieldRecipient      = "recipient"
	fieldIdentity       = "identity"
	fieldCertificate    = "certificate"
	fieldIssuer         = "issuer"
	fieldSignature      = "signature"

	prefixAssertion      = fieldAssertion + "."
	prefixRecipient      = fieldRecipient + "."
	prefixCertificate    = fieldCertificate + "."
	prefixEmbeddedIssuer = fieldCertificate + "." + fieldIssuer + "."
	prefixIssuer         = fieldIssuer + "."
)

// ParseCredential parses a generic credential document. The proof is re-encoded from
// the decoded value; use ParseCredentialBytes to keep it byte for byte.
func (p *Parser) ParseCredential(ctx context.Context, doc map[string]any) (*credential.Credential, error) {
	var sig json.RawMessage
	if v, ok := doc[fieldSignature]; ok && v != nil {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, &ParseError{Document: docCredential, Errors: []error{Invalid(fieldSignature, err)}}
		}
		sig = encoded
	}
	return p.parseCredential(ctx, doc, sig)
}

// ParseCredentialBytes decodes raw JSON and parses it as a credential, keeping the
// signature value verbatim.
func (p *Parser) ParseCredentialBytes(ctx context.Context, raw []byte) (*credential.Credential, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Signature json.RawMessage `json:"signature"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, err
	}
	sig := envelope.Signature
	if string(sig) == "null" {
		sig = nil
	}
	return p.parseCredential(ctx, doc, sig)
}

func (p *Parser) parseCredential(ctx context.Context, doc map[string]any, sig json.RawMessage) (cred *credential.Credential, err error) {
	ctx, span := p.tracer.Start(ctx, tracer.SpanParse, tracer.String("document", docCredential))
	defer func() {
		if err != nil {
			p.logFailure(ctx, docCredential, err)
		}
		span.End(err)
	}()

	version, err := DetectCredentialVersion(doc)
	if err != nil {
		return nil, err
	}

	x := newExtractor(doc, "")
	switch version {
	case credential.VersionLegacy:
		cred = p.legacyCredential(ctx, x, sig)
	case credential.VersionV2:
		cred = p.v2Credential(ctx, x, sig)
	}
	if err := x.result(docCredential); err != nil {
		return nil, err
	}
	span.SetAttributes(
		tracer.String(tracer.AttrCredential, cred.ID()),
		tracer.String(tracer.AttrRecipient, tracer.HashRecipient(cred.Recipient())),
	)
	return cred, nil
}

// legacyCredential reads {assertion, recipient, certificate: {issuer}, signature}.
func (p *Parser) legacyCredential(ctx context.Context, x *extractor, sig json.RawMessage) *credential.Credential {
	f := credential.Fields{Signature: sig}
	var sigImageRef string
	if assertion, ok := x.object(fieldAssertion, true); ok {
		ax := newExtractor(assertion, prefixAssertion)
		f.ID = ax.requiredURI(fieldID)
		f.UID = ax.requiredString(fieldUID)
		f.IssuedOn = ax.requiredTime(fieldIssuedOn)
		f.Evidence = ax.requiredString(fieldEvidence)
		sigImageRef = ax.requiredString(fieldLegacySigImage)
		x.absorb(ax)
	}

	if recipient, ok := x.object(fieldRecipient, false); ok {
		rx := newExtractor(recipient, prefixRecipient)
		f.Recipient, _ = rx.optionalString(fieldIdentity)
		x.absorb(rx)
	}

	certificate, _ := x.object(fieldCertificate, true)
	cx := newExtractor(certificate, prefixCertificate)
	issuerDoc, _ := cx.object(fieldIssuer, certificate != nil)
	x.absorb(cx)

	var pending pendingIssuer
	ix := newExtractor(issuerDoc, prefixEmbeddedIssuer)
	if issuerDoc != nil {
		pending = collectIssuer(ix, issuer.VersionEmbedded)
		x.absorb(ix)
		ix.errs = nil
	}
	if x.failed() {
		return nil
	}

	img, err := p.loadImage(ctx, sigImageRef)
	if err != nil {
		x.invalid(prefixAssertion+fieldLegacySigImage, err)
		return nil
	}
	f.SignatureImage = img

	embedded := p.buildIssuer(ctx, ix, pending)
	x.absorb(ix)
	if embedded == nil {
		return nil
	}
	f.Issuer = credential.IssuerRef{URI: embedded.ID(), Embedded: embedded}

	return newCredential(x, credential.VersionLegacy, f)
}

// v2Credential reads the flat {id, uid, issuedOn, evidence, recipient, issuer, signatureImage?, signature?} shape.
func (p *Parser) v2Credential(ctx context.Context, x *extractor, sig json.RawMessage) *credential.Credential {
	f := credential.Fields{
		ID:        x.requiredURI(fieldID),
		UID:       x.requiredString(fieldUID),
		IssuedOn:  x.requiredTime(fieldIssuedOn),
		Evidence:  x.requiredString(fieldEvidence),
		Signature: sig,
	}

	if recipient, ok := x.object(fieldRecipient, true); ok {
		rx := newExtractor(recipient, prefixRecipient)
		f.Recipient = rx.requiredString(fieldIdentity)
		x.absorb(rx)
	}

	f.Issuer.URI = issuerReference(x)
	sigImageRef, hasSigImage := x.optionalString(fieldSignatureImage)
	if x.failed() {
		return nil
	}

	if hasSigImage {
		img, err := p.loadImage(ctx, sigImageRef)
		if err != nil {
			x.invalid(fieldSignatureImage, err)
			return nil
		}
		f.SignatureImage = img
	}

	return newCredential(x, credential.VersionV2, f)
}

// issuerReference accepts either a URI string or an object with an id.
func issuerReference(x *extractor) string {
	if !x.present(fieldIssuer) {
		x.missing(fieldIssuer)
		return ""
	}
	if _, isString := x.doc[fieldIssuer].(string); isString {
		return x.requiredURI(fieldIssuer)
	}
	obj, ok := x.object(fieldIssuer, true)
	if !ok {
		return ""
	}
	ix := newExtractor(obj, prefixIssuer)
	uri := ix.requiredURI(fieldID)
	x.absorb(ix)
	return uri
}

func newCredential(x *extractor, version credential.Version, f credential.Fields) *credential.Credential {
	cred, err := credential.New(version, f)
	if err != nil {
		// Every invariant is checked during extraction; reaching this is a parser bug.
		x.invalid(fieldID, err)
		return nil
	}
	return cred
}
