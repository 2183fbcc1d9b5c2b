package domain

import "time"

// VerificationKind identifies the purpose of a one-time verification record.
type VerificationKind string

const (
	VerificationAccount VerificationKind = "account" // opaque URL token, no expiry
	VerificationMfa     VerificationKind = "mfa"     // 8-char code, short-lived
	VerificationReset   VerificationKind = "reset"   // opaque URL token, short-lived
)

// UserVerification is a single-use, time-limited key tied to one user and one
// purpose. PK: user_id, SK: kind — so at most one record of a given kind can
// exist per user, and issuing a new one is an atomic single-item replace.
// Records are immutable once created; they are deleted, never updated.
type UserVerification struct {
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Kind      string    `json:"kind" dynamodbav:"kind"`
	Key       string    `json:"-" dynamodbav:"verification_key"` // UUID token or MFA code, unique per kind
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // Unix seconds; 0 = never expires
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// Expired reports whether the record is past its expiry at the given instant.
// Expiry is evaluated at consumption time, never by a background sweep.
func (v *UserVerification) Expired(now time.Time) bool {
	return v.ExpiresAt != 0 && now.Unix() > v.ExpiresAt
}
