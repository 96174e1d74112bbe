package parser

import (
	"encoding/base64"
	"maps"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==")

var pngDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPixel)

func embeddedIssuerDoc() map[string]any {
	return map[string]any{
		"id":             "https://issuer.example.org/profile.json",
		"name":           "Example University",
		"email":          "registrar@example.org",
		"image":          pngDataURI,
		"url":            "https://example.org",
		"revocationList": "https://issuer.example.org/revocations.json",
	}
}

func v1IssuerDoc() map[string]any {
	doc := embeddedIssuerDoc()
	doc["version"] = "1"
	doc["introductionURL"] = "https://issuer.example.org/intro"
	doc["issuerKeys"] = []any{
		map[string]any{"key": "1Key2020", "date": "2020-01-01T00:00:00Z"},
		map[string]any{"key": "1Key2021", "date": "2021-01-01T00:00:00Z"},
	}
	return doc
}

func v2IssuerDoc() map[string]any {
	doc := embeddedIssuerDoc()
	doc["@context"] = []any{"https://w3id.org/openbadges/v2", "https://w3id.org/blockcerts/v2"}
	doc["type"] = "Profile"
	doc["introductionAuthenticationMethod"] = "api"
	doc["introductionURL"] = "https://issuer.example.org/intro"
	doc["publicKey"] = []any{
		map[string]any{"id": "ecdsa-koblitz-pubkey:k1", "created": "2020-01-01T00:00:00Z", "expires": "2021-01-01T00:00:00Z"},
		map[string]any{"id": "ecdsa-koblitz-pubkey:k2", "created": "2021-01-01T00:00:00Z"},
	}
	return doc
}

func legacyCredentialDoc() map[string]any {
	issuerDoc := embeddedIssuerDoc()
	return map[string]any{
		"assertion": map[string]any{
			"uid":             "56f2c9a2b7ce4c2e0d4f3a1b",
			"id":              "https://certs.example.org/56f2c9a2b7ce4c2e0d4f3a1b",
			"issuedOn":        "2016-04-01",
			"evidence":        "completed the course",
			"image:signature": pngDataURI,
		},
		"recipient": map[string]any{"identity": "alice@example.org"},
		"certificate": map[string]any{
			"name":   "Certificate of Accomplishment",
			"issuer": issuerDoc,
		},
		"signature": "H8vZ2kfJ0z",
	}
}

func v2CredentialDoc() map[string]any {
	return map[string]any{
		"@context": []any{
			"https://w3id.org/openbadges/v2",
			"https://w3id.org/blockcerts/v2",
			map[string]any{"displayHtml": map[string]any{"@id": "schema:description"}},
		},
		"type":           "Assertion",
		"id":             "urn:uuid:bbba8553-8ec1-445f-82c9-a57251dd731c",
		"uid":            "bbba8553-8ec1-445f-82c9-a57251dd731c",
		"issuedOn":       "2017-06-29T14:58:57.461422+00:00",
		"evidence":       "https://example.org/evidence",
		"recipient":      map[string]any{"identity": "alice@example.org", "type": "email", "hashed": false},
		"issuer":         map[string]any{"id": "https://issuer.example.org/profile.json", "type": "Profile"},
		"signatureImage": pngDataURI,
		"signature": map[string]any{
			"type":       []any{"MerkleProof2017", "Extension"},
			"merkleRoot": "68f3ede17fdb67ffd4a5164b5687a71f9fbb68da803b803935720f2aa38f7728",
		},
	}
}

func without(doc map[string]any, key string) map[string]any {
	out := maps.Clone(doc)
	delete(out, key)
	return out
}

func with(doc map[string]any, key string, value any) map[string]any {
	out := maps.Clone(doc)
	out[key] = value
	return out
}
