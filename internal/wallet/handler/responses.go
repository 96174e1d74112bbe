package handler

import (
	"time"

	"certwallet/internal/wallet/domain/credential"
	"certwallet/internal/wallet/domain/issuer"
	"certwallet/internal/wallet/service"
)

type CertificateResponse struct {
	Filename  string    `json:"filename"`
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	Version   string    `json:"version"`
	IssuedOn  time.Time `json:"issued_on"`
	Issuer    string    `json:"issuer"`
	Recipient string    `json:"recipient,omitempty"`
	Evidence  string    `json:"evidence,omitempty"`
}

type ImportResponse struct {
	RequestID   string              `json:"request_id"`
	Status      string              `json:"status"`
	Certificate CertificateResponse `json:"certificate"`
}

type ListResponse struct {
	Certificates []CertificateResponse `json:"certificates"`
	Count        int                   `json:"count"`
}

type IssuerSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	URL            string `json:"url"`
	Version        string `json:"version"`
	RevocationList string `json:"revocation_list,omitempty"`
}

type KeySummary struct {
	Key     string     `json:"key"`
	Created time.Time  `json:"created"`
	Expires *time.Time `json:"expires,omitempty"`
	Revoked *time.Time `json:"revoked,omitempty"`
}

type RevocationSummary struct {
	State     string     `json:"state"`
	Reason    string     `json:"reason,omitempty"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

type VerificationResponse struct {
	Filename     string            `json:"filename"`
	CredentialID string            `json:"credential_id"`
	Verdict      string            `json:"verdict"`
	Issuer       *IssuerSummary    `json:"issuer,omitempty"`
	Key          *KeySummary       `json:"key,omitempty"`
	Revocation   RevocationSummary `json:"revocation"`
	Reason       string            `json:"reason,omitempty"`
}

type RefreshResponse struct {
	Refreshed string `json:"refreshed"`
}

func toCertificateResponse(filename string, c *credential.Credential) CertificateResponse {
	if c == nil {
		return CertificateResponse{Filename: filename}
	}
	return CertificateResponse{
		Filename:  filename,
		ID:        c.ID(),
		UID:       c.UID(),
		Version:   string(c.Version()),
		IssuedOn:  c.IssuedOn().UTC(),
		Issuer:    c.Issuer().URI,
		Recipient: c.Recipient(),
		Evidence:  c.Evidence(),
	}
}

func toIssuerSummary(p *issuer.Profile) *IssuerSummary {
	if p == nil {
		return nil
	}
	return &IssuerSummary{
		ID:             p.ID(),
		Name:           p.Name(),
		URL:            p.URL(),
		Version:        string(p.Version()),
		RevocationList: p.RevocationList(),
	}
}

func toVerificationResponse(v service.Verification) VerificationResponse {
	resp := VerificationResponse{
		Filename:     v.Filename,
		CredentialID: v.CredentialID,
		Verdict:      string(v.Verdict),
		Issuer:       toIssuerSummary(v.Issuer),
		Revocation: RevocationSummary{
			State:     string(v.Revocation.State),
			Reason:    v.Revocation.Reason,
			RevokedAt: v.Revocation.RevokedAt,
		},
	}
	if v.Key != nil {
		resp.Key = &KeySummary{
			Key:     v.Key.Key,
			Created: v.Key.Created,
			Expires: v.Key.Expires,
			Revoked: v.Key.Revoked,
		}
	}
	if v.Err != nil {
		resp.Reason = v.Err.Error()
	}
	return resp
}
