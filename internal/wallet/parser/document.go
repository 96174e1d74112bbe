package parser

import (
	"time"

	"github.com/samber/lo"

	"certwallet/internal/wallet/domain/issuer"
)

// IssuerToDocument is the inverse of ParseIssuer. Images are written as inline data
// URIs so the document stays self-contained, and each version only emits the fields
// it models: ParseIssuer(IssuerToDocument(p)) reconstructs p.
func IssuerToDocument(p *issuer.Profile) map[string]any {
	doc := map[string]any{
		fieldID:    p.ID(),
		fieldName:  p.Name(),
		fieldEmail: p.Email(),
		fieldURL:   p.URL(),
		fieldImage: p.Image().DataURI(),
	}
	if p.RevocationList() != "" {
		doc[fieldRevocationList] = p.RevocationList()
	}

	intro := p.Introduction()
	switch p.Version() {
	case issuer.VersionV1:
		doc[fieldVersion] = "1"
		if intro.URL != "" {
			doc[fieldIntroURL] = intro.URL
		}
		doc[fieldIssuerKeys] = lo.Map(p.Keys(), func(k issuer.KeyRotation, _ int) any {
			return map[string]any{
				"key":  k.Key,
				"date": formatTime(k.Created),
			}
		})
	case issuer.VersionV2:
		doc[fieldContext] = []any{
			"https://w3id.org/openbadges/v2",
			"https://w3id.org/blockcerts/v2",
		}
		doc["type"] = "Profile"
		doc[fieldIntroMethod] = string(intro.Method)
		if intro.URL != "" {
			doc[fieldIntroURL] = intro.URL
		}
		doc[fieldPublicKey] = lo.Map(p.Keys(), func(k issuer.KeyRotation, _ int) any {
			entry := map[string]any{
				"id":      k.Key,
				"created": formatTime(k.Created),
			}
			if k.Expires != nil {
				entry["expires"] = formatTime(*k.Expires)
			}
			if k.Revoked != nil {
				entry["revoked"] = formatTime(*k.Revoked)
			}
			return entry
		})
	}
	return doc
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
