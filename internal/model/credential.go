package model

import (
	"fmt"
	"time"
)

// Secret kind constants
const (
	SecretKindPlaintext = "plaintext"
	SecretKindPreHashed = "prehashed"
)

// Hash scheme constants, matching pkg/security scheme names
const (
	SchemeMD5         = "md5"
	SchemeSCRAMSHA256 = "scram-sha-256"
	SchemeBcrypt      = "bcrypt"
)

// Secret is the candidate credential in one of two representations.
// A plaintext secret carries Value; a pre-hashed secret carries the
// scheme identifier and the digest produced under it.
type Secret struct {
	Kind   string `json:"kind"`
	Value  string `json:"value,omitempty"`
	Scheme string `json:"scheme,omitempty"`
	Digest string `json:"digest,omitempty"`
}

// IsPlaintext reports whether the secret was submitted unencrypted.
func (s Secret) IsPlaintext() bool {
	return s.Kind == SecretKindPlaintext
}

// CredentialChangeRequest is one credential-change attempt as handed
// over by the host. ExpiresAt is carried through for the host's benefit
// and is not evaluated by the policy engine.
type CredentialChangeRequest struct {
	AccountName string     `json:"account_name"`
	Secret      Secret     `json:"secret"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ReasonCode identifies which policy rule rejected a candidate secret.
type ReasonCode string

const (
	ReasonTooShort            ReasonCode = "too_short"
	ReasonContainsUsername    ReasonCode = "contains_username"
	ReasonInsufficientDigits  ReasonCode = "insufficient_digits"
	ReasonInsufficientSpecial ReasonCode = "insufficient_special"
	ReasonInsufficientUpper   ReasonCode = "insufficient_upper"
	ReasonInsufficientLower   ReasonCode = "insufficient_lower"
	ReasonWeakSecret          ReasonCode = "weak_secret"
)

// RejectionReason explains a rejection. Required and Actual carry the
// violated threshold and the observed count so the caller can surface an
// actionable message; both are zero for rules that have no threshold.
type RejectionReason struct {
	Code     ReasonCode `json:"code"`
	Required int        `json:"required,omitempty"`
	Actual   int        `json:"actual,omitempty"`
}

// Message renders the human-readable reason the host shows to the user.
func (r RejectionReason) Message() string {
	switch r.Code {
	case ReasonTooShort:
		return fmt.Sprintf("password must be at least %d characters long", r.Required)
	case ReasonContainsUsername:
		return "password must not contain user name"
	case ReasonInsufficientDigits:
		return fmt.Sprintf("password must contain at least %d numeric characters", r.Required)
	case ReasonInsufficientSpecial:
		return fmt.Sprintf("password must contain at least %d special characters", r.Required)
	case ReasonInsufficientUpper:
		return fmt.Sprintf("password must contain at least %d upper case letters", r.Required)
	case ReasonInsufficientLower:
		return fmt.Sprintf("password must contain at least %d lower case letters", r.Required)
	case ReasonWeakSecret:
		return "password is easily cracked"
	default:
		return "password rejected"
	}
}

// Verdict is the outcome of one evaluation: accepted, or rejected with
// exactly one reason. There is no partial or warning state.
type Verdict struct {
	Accepted bool             `json:"accepted"`
	Reason   *RejectionReason `json:"reason,omitempty"`
}

// Accept returns the accepting verdict.
func Accept() Verdict {
	return Verdict{Accepted: true}
}

// Reject returns a rejecting verdict with the given reason.
func Reject(reason RejectionReason) Verdict {
	return Verdict{Accepted: false, Reason: &reason}
}
