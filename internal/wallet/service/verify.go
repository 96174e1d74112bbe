package service

import (
	"context"
	"errors"

	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/resolver"
	"certwallet/internal/wallet/revocation"
	"certwallet/internal/wallet/tracer"
	dErrors "certwallet/pkg/domain-errors"
)

// Verdict is the final trust decision for a credential.
type Verdict string

const (
	// VerdictTrusted: the issuer resolved, a key covers the issuance time and
	// the revocation list was consulted without naming the credential.
	VerdictTrusted Verdict = "trusted"
	// VerdictRevoked: the issuer's revocation list names the credential.
	VerdictRevoked Verdict = "revoked"
	// VerdictUnknown: the issuer profile or revocation list could not be retrieved.
	VerdictUnknown Verdict = "unknown"
	// VerdictUntrusted: the issuer profile is defective or has no key for the issuance time.
	VerdictUntrusted Verdict = "untrusted"
)

// Verification explains a verdict. Err carries the cause for unknown and untrusted verdicts.
type Verification struct {
	Filename     string
	CredentialID string
	Verdict      Verdict
	Issuer       *issuer.Profile
	Key          *issuer.KeyRotation
	Revocation   revocation.Status
	Err          error
}

// Verify resolves the credential's issuer at its issuance time and checks revocation.
// Legacy credentials carry their issuer profile, which publishes no keys; for those
// the embedded profile is used and only revocation decides.
//
// Errors: not_found when filename is not loaded. Pipeline failures are
// reported through the verdict, never as an error.
func (s *Service) Verify(ctx context.Context, filename string) (v Verification, err error) {
	entry, err := s.Get(filename)
	if err != nil {
		return Verification{}, err
	}
	cred := entry.Credential

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrCredential, cred.ID()),
		tracer.String(tracer.AttrIssuer, cred.Issuer().URI),
	)
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrVerdict, string(v.Verdict)))
		span.End(err)
		if s.metrics != nil {
			s.metrics.RecordVerification(string(v.Verdict))
		}
	}()

	v = Verification{Filename: entry.Filename, CredentialID: cred.ID()}

	var keyErr error
	if embedded := cred.Issuer().Embedded; embedded != nil {
		v.Issuer = embedded
	} else {
		res, resolveErr := s.resolver.Resolve(ctx, cred.Issuer().URI, cred.IssuedOn())
		switch {
		case resolveErr == nil:
			v.Issuer = res.Profile
			key := res.Key
			v.Key = &key
		case errors.Is(resolveErr, resolver.ErrNoValidKey):
			v.Issuer = res.Profile
			keyErr = resolveErr
		case isParseFailure(resolveErr) || dErrors.HasCode(resolveErr, dErrors.CodeInvalidInput):
			v.Verdict, v.Err = VerdictUntrusted, resolveErr
			v.Revocation = revocation.Unknown(resolveErr)
			return v, nil
		default:
			v.Verdict, v.Err = VerdictUnknown, resolveErr
			v.Revocation = revocation.Unknown(resolveErr)
			return v, nil
		}
	}

	v.Revocation = s.revocation.Check(ctx, cred.ID(), v.Issuer)
	switch {
	case v.Revocation.State == revocation.StateRevoked:
		v.Verdict = VerdictRevoked
	case keyErr != nil:
		v.Verdict, v.Err = VerdictUntrusted, keyErr
	case v.Revocation.State == revocation.StateUnknown:
		v.Verdict, v.Err = VerdictUnknown, v.Revocation.Cause
	default:
		v.Verdict = VerdictTrusted
	}
	return v, nil
}
