package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Token verification failures. The three variants exist for logging and
// diagnostics only; all of them wrap ErrUnauthorized so everything outside
// the token layer collapses them into a single 401 category.
var (
	ErrTokenExpired   = fmt.Errorf("token expired: %w", ErrUnauthorized)
	ErrTokenInvalid   = fmt.Errorf("token invalid: %w", ErrUnauthorized)
	ErrTokenMalformed = fmt.Errorf("token malformed: %w", ErrUnauthorized)
)

// Verification record failures. Not-found and expired stay distinct because
// the user-facing messages differ. An MFA code mismatch wraps ErrUnauthorized
// so the client never learns whether the email or the code was wrong.
var (
	ErrVerificationNotFound = errors.New("verification not found")
	ErrVerificationExpired  = errors.New("verification expired")
	ErrMfaCodeInvalid       = fmt.Errorf("mfa code invalid: %w", ErrUnauthorized)
	ErrPasswordMismatch     = fmt.Errorf("passwords do not match: %w", ErrBadRequest)
	ErrNotificationFailed   = errors.New("notification delivery failed")
)
