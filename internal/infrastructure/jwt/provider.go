package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const authoritiesClaim = "authorities"

// Claims holds the JWT payload fields. Refresh tokens carry no authorities.
type Claims struct {
	Authorities []string `json:"authorities,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS512 JWTs. Tokens are never persisted
// server-side and there is no revocation list: a compromised access token
// stays valid until its expiry elapses. That is an accepted trade-off of the
// stateless design, not a bug.
//
// The signing secret, issuer and audience are loaded once at startup and
// never mutated, so the provider is safe for concurrent use.
type Provider struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt: signing secret is not configured")
	}
	return &Provider{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

// CreateAccessToken signs a short-lived token embedding the principal's
// authorities as a claim array.
func (p *Provider) CreateAccessToken(principal domain.Principal) (string, error) {
	return p.sign(principal.Subject, principal.Authorities, p.accessTTL)
}

// CreateRefreshToken signs a longer-lived token without authorities.
func (p *Provider) CreateRefreshToken(principal domain.Principal) (string, error) {
	return p.sign(principal.Subject, nil, p.refreshTTL)
}

// VerifyAndGetSubject checks signature and claims and returns the subject.
// Failures surface as domain.ErrTokenExpired, ErrTokenInvalid or
// ErrTokenMalformed — all wrapping domain.ErrUnauthorized.
func (p *Provider) VerifyAndGetSubject(tokenStr string) (string, error) {
	claims, err := p.verify(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// GetAuthorities re-verifies the token and extracts the authorities claim.
// It fails identically to VerifyAndGetSubject.
func (p *Provider) GetAuthorities(tokenStr string) ([]string, error) {
	claims, err := p.verify(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Authorities, nil
}

func (p *Provider) sign(subject string, authorities []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Authorities: authorities,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString(p.secret)
}

func (p *Provider) verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
			}
			return p.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
	)
	if err != nil {
		return nil, classify(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// classify maps golang-jwt parse errors onto the internal token taxonomy.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return domain.ErrTokenInvalid
	default:
		return domain.ErrTokenMalformed
	}
}
