package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type ResetPasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ActivationResult distinguishes a fresh activation from a repeat click on an
// already-activated account, so the caller can respond idempotently.
type ActivationResult struct {
	User      *domain.User
	Activated bool
}

// Store is the user persistence surface these flows require.
type Store interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// RoleStore resolves role names at registration time.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Scan(ctx context.Context) ([]domain.Role, error)
}

// Notifier carries the confirmation messages that are not tied to a
// verification record (the record-bearing ones go through the verification
// service).
type Notifier interface {
	SendAccountVerifiedConfirmation(name, email string)
	SendResetConfirmation(name, email string)
}

type Service interface {
	// Register creates a disabled user and issues an account verification.
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)

	// ActivateAccount consumes an activation key and enables the user.
	ActivateAccount(ctx context.Context, key string) (*ActivationResult, error)

	GetProfile(ctx context.Context, email string) (*domain.User, error)

	// UpdateProfile applies the changes; an email change disables the account
	// and re-issues an account verification for the new address.
	UpdateProfile(ctx context.Context, email string, req domain.UpdateUserRequest) (*domain.User, error)

	// RequestPasswordReset issues a reset link when the email is known and
	// silently succeeds when it is not, so the endpoint never reveals whether
	// an account exists.
	RequestPasswordReset(ctx context.Context, email string) error

	// VerifyResetKey validates a reset link without consuming it.
	VerifyResetKey(ctx context.Context, key string) (*domain.User, error)

	// ResetPassword consumes the reset key and persists the new password.
	ResetPassword(ctx context.Context, key string, req ResetPasswordRequest) error

	ListRoles(ctx context.Context) ([]domain.Role, error)
}

type service struct {
	userRepo     Store
	roleRepo     RoleStore
	verification verification.Service
	notifier     Notifier
}

func NewService(userRepo Store, roleRepo RoleStore, verificationSvc verification.Service, notifier Notifier) Service {
	return &service{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		verification: verificationSvc,
		notifier:     notifier,
	}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	email := strings.ToLower(req.Email)
	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email already in use: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	role, err := s.roleRepo.GetByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("resolve default role: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	mfaType := req.MfaType
	if req.UsingMfa && mfaType == "" {
		mfaType = domain.MfaTypeEmail
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role.Name,
		Enabled:      false,
		UsingMfa:     req.UsingMfa,
		MfaType:      mfaType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}

	if _, err := s.verification.Issue(ctx, u, domain.VerificationAccount); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) ActivateAccount(ctx context.Context, key string) (*ActivationResult, error) {
	v, err := s.verification.ConsumeKey(ctx, domain.VerificationAccount, key)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.Get(ctx, v.UserID)
	if err != nil {
		return nil, err
	}
	if u.Enabled {
		// Repeated activation clicks are a no-op, not an error.
		return &ActivationResult{User: u, Activated: false}, nil
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"enabled": true}); err != nil {
		return nil, err
	}
	u.Enabled = true
	s.notifier.SendAccountVerifiedConfirmation(u.FirstName, u.Email)
	return &ActivationResult{User: u, Activated: true}, nil
}

func (s *service) GetProfile(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

func (s *service) UpdateProfile(ctx context.Context, email string, req domain.UpdateUserRequest) (*domain.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
		u.LastName = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
		u.Phone = req.Phone
	}
	if req.Title != nil {
		updates["title"] = *req.Title
		u.Title = *req.Title
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
		u.Bio = *req.Bio
	}
	if req.UsingMfa != nil {
		updates["using_mfa"] = *req.UsingMfa
		u.UsingMfa = *req.UsingMfa
	}
	if req.MfaType != nil {
		updates["mfa_type"] = *req.MfaType
		u.MfaType = *req.MfaType
	}

	emailChanged := false
	if req.Email != nil {
		newEmail := strings.ToLower(*req.Email)
		if newEmail != u.Email {
			if _, err := s.userRepo.GetByEmail(ctx, newEmail); err == nil {
				return nil, fmt.Errorf("email already in use: %w", domain.ErrConflict)
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			// A changed address must be re-verified before the account can
			// authenticate again.
			updates["email"] = newEmail
			updates["enabled"] = false
			u.Email = newEmail
			u.Enabled = false
			emailChanged = true
		}
	}

	if len(updates) == 0 {
		return u, nil
	}
	if err := s.userRepo.Update(ctx, u.UserID, updates); err != nil {
		return nil, err
	}
	if emailChanged {
		// A reset link mailed to the old address must not survive the change.
		if err := s.verification.Revoke(ctx, u.UserID, domain.VerificationReset); err != nil {
			return nil, err
		}
		if _, err := s.verification.Issue(ctx, u, domain.VerificationAccount); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Respond identically whether or not the account exists.
			slog.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}
	_, err = s.verification.Issue(ctx, u, domain.VerificationReset)
	return err
}

func (s *service) VerifyResetKey(ctx context.Context, key string) (*domain.User, error) {
	v, err := s.verification.PeekKey(ctx, domain.VerificationReset, key)
	if err != nil {
		return nil, err
	}
	return s.userRepo.Get(ctx, v.UserID)
}

func (s *service) ResetPassword(ctx context.Context, key string, req ResetPasswordRequest) error {
	if req.NewPassword != req.ConfirmPassword {
		return domain.ErrPasswordMismatch
	}
	v, err := s.verification.ConsumeKey(ctx, domain.VerificationReset, key)
	if err != nil {
		return err
	}
	u, err := s.userRepo.Get(ctx, v.UserID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	s.notifier.SendResetConfirmation(u.FirstName, u.Email)
	return nil
}

func (s *service) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.roleRepo.Scan(ctx)
}
