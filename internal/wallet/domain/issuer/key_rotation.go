package issuer

import (
	"errors"
	"slices"
	"time"
)

// KeyRotation is a public key with its validity interval [Created, Expires).
// A nil Expires means open-ended. A revoked key stops covering instants at or after Revoked.
type KeyRotation struct {
	Key     string
	Created time.Time
	Expires *time.Time
	Revoked *time.Time
}

var (
	errMissingKey        = errors.New("key value is required")
	errMissingCreated    = errors.New("key creation time is required")
	errExpiresNotAfter   = errors.New("key expires before it is created")
	errRevokedBeforeUsed = errors.New("key revoked before it is created")
)

// Covers reports whether t falls inside the key's validity interval.
func (k KeyRotation) Covers(t time.Time) bool {
	if t.Before(k.Created) {
		return false
	}
	if k.Expires != nil && !t.Before(*k.Expires) {
		return false
	}
	if k.Revoked != nil && !t.Before(*k.Revoked) {
		return false
	}
	return true
}

// IsCurrent reports whether the key is open-ended and not revoked.
func (k KeyRotation) IsCurrent() bool {
	return k.Expires == nil && k.Revoked == nil
}

func (k KeyRotation) validate() error {
	if k.Key == "" {
		return errMissingKey
	}
	if k.Created.IsZero() {
		return errMissingCreated
	}
	if k.Expires != nil && !k.Expires.After(k.Created) {
		return errExpiresNotAfter
	}
	if k.Revoked != nil && k.Revoked.Before(k.Created) {
		return errRevokedBeforeUsed
	}
	return nil
}

// ImplicitRotations builds rotations from keys that only publish a start date: each key
// is valid until the next key's start. Input order does not matter.
func ImplicitRotations(keys []KeyRotation) []KeyRotation {
	out := make([]KeyRotation, len(keys))
	copy(out, keys)
	sortByCreated(out)
	for i := range out {
		out[i].Expires = nil
		if i+1 < len(out) && out[i+1].Created.After(out[i].Created) {
			next := out[i+1].Created
			out[i].Expires = &next
		}
	}
	return out
}

func sortByCreated(keys []KeyRotation) {
	slices.SortStableFunc(keys, func(a, b KeyRotation) int {
		return a.Created.Compare(b.Created)
	})
}
