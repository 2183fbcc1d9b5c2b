// Package verification implements the one-time verification record flows:
// account activation links, MFA login codes and password-reset links. The
// three variants share one algorithm skeleton, parameterized by lifetime and
// key shape.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/keygen"
)

// maxKeyAttempts bounds key regeneration on a cross-user key collision.
const maxKeyAttempts = 3

// Store is the persistence boundary for verification records.
type Store interface {
	Replace(ctx context.Context, v *domain.UserVerification) error
	GetByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error)
	GetByUser(ctx context.Context, userID string, kind domain.VerificationKind) (*domain.UserVerification, error)
	Consume(ctx context.Context, v *domain.UserVerification) error
	ConsumeByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error)
	DeleteByUser(ctx context.Context, userID string, kind domain.VerificationKind) error
}

// Notifier is the delivery collaborator; all methods are fire-and-forget.
type Notifier interface {
	SendAccountVerification(name, email, url string)
	SendMfaCodeEmail(name, email, code string)
	SendMfaCodeSMS(name, phone, code string)
	SendResetPasswordURL(name, email, url string)
}

type Service interface {
	// Issue creates a new record of the given kind for the user, superseding
	// any existing one, and dispatches delivery. Delivery is best-effort: a
	// failed send never rolls the record back.
	Issue(ctx context.Context, u *domain.User, kind domain.VerificationKind) (*domain.UserVerification, error)

	// ConsumeKey validates and consumes a URL-token record (account or
	// reset). Absent keys fail with ErrVerificationNotFound; expired records
	// are deleted and fail with ErrVerificationExpired. Consumption is
	// exactly-once: a replayed key fails with not-found, never expired.
	ConsumeKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error)

	// PeekKey validates a URL-token record without consuming it. An expired
	// record is still deleted on detection.
	PeekKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error)

	// ConsumeMfaCode checks the user's pending MFA code. A mismatched code
	// fails with ErrMfaCodeInvalid and leaves the record intact, so the user
	// gets natural retries until the record's own expiry removes it. A
	// matching but expired code deletes the record and fails expired.
	ConsumeMfaCode(ctx context.Context, userID, code string) error

	// Revoke removes any pending record of the given kind for the user
	// without needing its key material. Idempotent.
	Revoke(ctx context.Context, userID string, kind domain.VerificationKind) error
}

type service struct {
	store    Store
	notifier Notifier

	baseURL  string
	mfaTTL   time.Duration
	resetTTL time.Duration

	now func() time.Time
}

func NewService(store Store, notifier Notifier, baseURL string, mfaTTL, resetTTL time.Duration) Service {
	return &service{
		store:    store,
		notifier: notifier,
		baseURL:  baseURL,
		mfaTTL:   mfaTTL,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

func (s *service) Issue(ctx context.Context, u *domain.User, kind domain.VerificationKind) (*domain.UserVerification, error) {
	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := s.generateKey(kind)
		if err != nil {
			return nil, err
		}
		// Keys must be unique across all users of a kind. On the vanishingly
		// rare collision, regenerate instead of silently overwriting someone
		// else's record. The check-then-put is not atomic, so two concurrent
		// issues could in principle both pass with the same key; with 122-bit
		// UUIDs and 36^8 codes we accept that residual window.
		if _, err := s.store.GetByKey(ctx, kind, key); err == nil {
			slog.Warn("verification key collision, regenerating", "kind", kind)
			continue
		} else if !isNotFound(err) {
			return nil, err
		}

		v := &domain.UserVerification{
			UserID:    u.UserID,
			Kind:      string(kind),
			Key:       key,
			ExpiresAt: s.expiry(kind),
			CreatedAt: s.now().UTC(),
		}
		if err := s.store.Replace(ctx, v); err != nil {
			return nil, err
		}
		s.dispatch(u, kind, key)
		return v, nil
	}
	return nil, fmt.Errorf("could not generate a unique %s verification key", kind)
}

func (s *service) ConsumeKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	v, err := s.store.ConsumeByKey(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if v.Expired(s.now()) {
		return nil, domain.ErrVerificationExpired
	}
	return v, nil
}

func (s *service) PeekKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	v, err := s.store.GetByKey(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if v.Expired(s.now()) {
		if err := s.store.Consume(ctx, v); err != nil && !isNotFound(err) {
			slog.Warn("could not delete expired verification", "kind", kind, "user_id", v.UserID, "err", err)
		}
		return nil, domain.ErrVerificationExpired
	}
	return v, nil
}

func (s *service) ConsumeMfaCode(ctx context.Context, userID, code string) error {
	v, err := s.store.GetByUser(ctx, userID, domain.VerificationMfa)
	if err != nil {
		return err
	}
	if v.Key != code {
		// Record stays: the user retries until it expires.
		return domain.ErrMfaCodeInvalid
	}
	// Single-use: delete on both the success and the expired path. The
	// conditional delete keeps consumption exactly-once under races.
	if err := s.store.Consume(ctx, v); err != nil {
		return err
	}
	if v.Expired(s.now()) {
		return domain.ErrVerificationExpired
	}
	return nil
}

func (s *service) Revoke(ctx context.Context, userID string, kind domain.VerificationKind) error {
	return s.store.DeleteByUser(ctx, userID, kind)
}

func (s *service) generateKey(kind domain.VerificationKind) (string, error) {
	if kind == domain.VerificationMfa {
		return keygen.NewMfaCode()
	}
	return keygen.NewURLToken(), nil
}

// expiry returns the record's expiry as Unix seconds; 0 means no expiry.
func (s *service) expiry(kind domain.VerificationKind) int64 {
	switch kind {
	case domain.VerificationMfa:
		return s.now().Add(s.mfaTTL).Unix()
	case domain.VerificationReset:
		return s.now().Add(s.resetTTL).Unix()
	default:
		return 0
	}
}

func (s *service) dispatch(u *domain.User, kind domain.VerificationKind, key string) {
	switch kind {
	case domain.VerificationAccount:
		s.notifier.SendAccountVerification(u.FirstName, u.Email, s.verificationURL("account", key))
	case domain.VerificationReset:
		s.notifier.SendResetPasswordURL(u.FirstName, u.Email, s.verificationURL("password", key))
	case domain.VerificationMfa:
		if u.MfaType == domain.MfaTypeSMS && u.Phone != nil {
			s.notifier.SendMfaCodeSMS(u.FirstName, *u.Phone, key)
		} else {
			s.notifier.SendMfaCodeEmail(u.FirstName, u.Email, key)
		}
	}
}

func (s *service) verificationURL(kind, key string) string {
	return fmt.Sprintf("%s/users/verify/%s/%s", s.baseURL, kind, key)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrVerificationNotFound) || errors.Is(err, domain.ErrNotFound)
}
