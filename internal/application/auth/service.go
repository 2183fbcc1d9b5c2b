package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-account-api/internal/application/verification"
	"github.com/go-account-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type MfaVerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=8"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type LoginResult struct {
	MfaRequired bool
	Tokens      *TokenPair
	User        *domain.User
}

// UserStore is the minimal user persistence surface the auth flows require.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// RoleStore resolves role names to their permission sets.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
}

// TokenProvider signs token pairs for authenticated principals.
type TokenProvider interface {
	CreateAccessToken(p domain.Principal) (string, error)
	CreateRefreshToken(p domain.Principal) (string, error)
	VerifyAndGetSubject(token string) (string, error)
}

type Service interface {
	// Login checks credentials. Users with MFA enabled get a login challenge
	// issued instead of tokens.
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)

	// VerifyMfaCode consumes a pending MFA challenge and returns a token
	// pair. Unknown emails and missing challenges deliberately fail the same
	// way as a wrong code.
	VerifyMfaCode(ctx context.Context, req MfaVerifyRequest) (*TokenPair, error)

	// Refresh verifies a refresh token and returns a fresh token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type service struct {
	userRepo     UserStore
	roleRepo     RoleStore
	tokens       TokenProvider
	verification verification.Service
}

func NewService(userRepo UserStore, roleRepo RoleStore, tokens TokenProvider, verificationSvc verification.Service) Service {
	return &service{
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		tokens:       tokens,
		verification: verificationSvc,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if !u.Enabled {
		return nil, fmt.Errorf("account not verified: %w", domain.ErrForbidden)
	}

	if u.UsingMfa {
		if _, err := s.verification.Issue(ctx, u, domain.VerificationMfa); err != nil {
			return nil, err
		}
		return &LoginResult{MfaRequired: true, User: u}, nil
	}

	pair, err := s.tokenPair(ctx, u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: pair, User: u}, nil
}

func (s *service) VerifyMfaCode(ctx context.Context, req MfaVerifyRequest) (*TokenPair, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		slog.Warn("mfa verify for unknown email")
		return nil, domain.ErrMfaCodeInvalid
	}
	if err := s.verification.ConsumeMfaCode(ctx, u.UserID, req.Code); err != nil {
		if errors.Is(err, domain.ErrVerificationExpired) {
			return nil, err
		}
		// Missing challenge and wrong code are indistinguishable to the client.
		return nil, domain.ErrMfaCodeInvalid
	}
	return s.tokenPair(ctx, u)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.tokens.VerifyAndGetSubject(refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByEmail(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("refresh for unknown subject: %w", domain.ErrUnauthorized)
	}
	if !u.Enabled {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	return s.tokenPair(ctx, u)
}

// tokenPair builds the principal from the user's role and signs both tokens.
func (s *service) tokenPair(ctx context.Context, u *domain.User) (*TokenPair, error) {
	role, err := s.roleRepo.GetByName(ctx, u.Role)
	if err != nil {
		return nil, fmt.Errorf("resolve role %s: %w", u.Role, err)
	}
	principal := domain.Principal{Subject: u.Email, Authorities: role.Authorities()}

	access, err := s.tokens.CreateAccessToken(principal)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefreshToken(principal)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
