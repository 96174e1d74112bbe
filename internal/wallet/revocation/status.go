package revocation

import (
	"fmt"
	"time"
)

// State is the outcome of a revocation check.
type State string

const (
	StateNotRevoked State = "not_revoked"
	StateRevoked    State = "revoked"
	StateUnknown    State = "unknown"
)

// Status is a revocation verdict. Unknown carries the reason the list could not
// be consulted; it is never an implicit NotRevoked.
type Status struct {
	State     State
	Reason    string
	RevokedAt *time.Time
	Cause     error
}

func NotRevoked() Status {
	return Status{State: StateNotRevoked}
}

func Revoked(reason string, at *time.Time) Status {
	return Status{State: StateRevoked, Reason: reason, RevokedAt: at}
}

func Unknown(cause error) Status {
	return Status{State: StateUnknown, Cause: cause}
}

// IsDefinitive reports whether the list was actually consulted.
func (s Status) IsDefinitive() bool {
	return s.State == StateRevoked || s.State == StateNotRevoked
}

func (s Status) String() string {
	switch s.State {
	case StateRevoked:
		if s.Reason != "" {
			return fmt.Sprintf("revoked (%s)", s.Reason)
		}
		return "revoked"
	case StateUnknown:
		if s.Cause != nil {
			return fmt.Sprintf("unknown: %v", s.Cause)
		}
		return "unknown"
	default:
		return string(s.State)
	}
}
