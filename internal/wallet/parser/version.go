package parser

import (
	"strings"

	"github.com/samber/lo"

	"certwallet/internal/wallet/domain/credential"
	"certwallet/internal/wallet/domain/issuer"
)

const (
	fieldVersion = "version"
	fieldContext = "@context"
)

// v2Contexts mark a document as Open Badges v2 / Blockcerts v2 shaped.
var v2Contexts = []string{"openbadges/v2", "blockcerts/v2"}

// DetectIssuerVersion selects the issuer profile branch for doc. An explicit version
// wins over @context; a document with neither is the embedded legacy shape.
func DetectIssuerVersion(doc map[string]any) (issuer.Version, error) {
	tag, hasTag, err := versionTag(doc, docIssuer)
	if err != nil {
		return "", err
	}
	if hasTag {
		switch tag {
		case "1":
			return issuer.VersionV1, nil
		case "2":
			return issuer.VersionV2, nil
		}
		return "", &VersionError{Document: docIssuer, Version: tag}
	}

	contexts, hasContext := contextEntries(doc)
	if !hasContext {
		return issuer.VersionEmbedded, nil
	}
	if isV2Context(contexts) {
		return issuer.VersionV2, nil
	}
	return "", &VersionError{Document: docIssuer, Version: strings.Join(contexts, " ")}
}

// DetectCredentialVersion selects the credential branch for doc. A document with no
// version marker is the legacy shape.
func DetectCredentialVersion(doc map[string]any) (credential.Version, error) {
	tag, hasTag, err := versionTag(doc, docCredential)
	if err != nil {
		return "", err
	}
	if hasTag {
		if tag == "2" {
			return credential.VersionV2, nil
		}
		return "", &VersionError{Document: docCredential, Version: tag}
	}

	contexts, hasContext := contextEntries(doc)
	if !hasContext {
		return credential.VersionLegacy, nil
	}
	if isV2Context(contexts) {
		return credential.VersionV2, nil
	}
	return "", &VersionError{Document: docCredential, Version: strings.Join(contexts, " ")}
}

func versionTag(doc map[string]any, document string) (string, bool, error) {
	raw, ok := doc[fieldVersion]
	if !ok || raw == nil {
		return "", false, nil
	}
	tag, ok := raw.(string)
	if !ok {
		return "", false, &ParseError{Document: document, Errors: []error{Invalid(fieldVersion, errNotString)}}
	}
	return tag, true, nil
}

// contextEntries returns the string entries of @context, which may be a single string
// or a list mixing strings and inline objects.
func contextEntries(doc map[string]any) ([]string, bool) {
	switch v := doc[fieldContext].(type) {
	case string:
		return []string{v}, true
	case []any:
		return lo.FilterMap(v, func(item any, _ int) (string, bool) {
			s, ok := item.(string)
			return s, ok
		}), true
	case map[string]any:
		return nil, true
	}
	return nil, false
}

func isV2Context(contexts []string) bool {
	return lo.ContainsBy(contexts, func(c string) bool {
		return lo.ContainsBy(v2Contexts, func(marker string) bool {
			return strings.Contains(c, marker)
		})
	})
}
