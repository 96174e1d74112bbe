package handler

import (
	"strings"

	"certwallet/internal/wallet/domain/issuer"
	dErrors "certwallet/pkg/domain-errors"
)

// RefreshRequest names the issuer profile to drop from the cache. An empty
// Issuer drops every cached profile.
type RefreshRequest struct {
	Issuer string `json:"issuer"`
}

func (r *RefreshRequest) Sanitize() {
	r.Issuer = strings.TrimSpace(r.Issuer)
}

func (r *RefreshRequest) Validate() error {
	if r.Issuer == "" {
		return nil
	}
	if err := issuer.RequireURI(r.Issuer); err != nil {
		return dErrors.New(dErrors.CodeValidation, "issuer must be an absolute URI")
	}
	return nil
}
