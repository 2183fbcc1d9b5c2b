package jwtinfra

import (
	"errors"
	"testing"
	"time"

	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(&config.Config{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		JWTIssuer:       "ACCOUNT_API",
		JWTAudience:     "ACCOUNT_API_CLIENTS",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 120 * time.Hour,
	})
	require.NoError(t, err)
	return p
}

func testPrincipal() domain.Principal {
	return domain.Principal{
		Subject:     "alice@example.com",
		Authorities: []string{"ROLE_USER", "READ:USER"},
	}
}

func TestNewProvider_MissingSecret(t *testing.T) {
	_, err := NewProvider(&config.Config{})
	require.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	subject, err := p.VerifyAndGetSubject(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	auths, err := p.GetAuthorities(signed)
	require.NoError(t, err)
	assert.Equal(t, []string{"ROLE_USER", "READ:USER"}, auths)
}

func TestRefreshToken_OmitsAuthorities(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.CreateRefreshToken(testPrincipal())
	require.NoError(t, err)

	subject, err := p.VerifyAndGetSubject(signed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)

	auths, err := p.GetAuthorities(signed)
	require.NoError(t, err)
	assert.Empty(t, auths)
}

func TestVerify_ExpiredToken(t *testing.T) {
	p := newTestProvider(t)
	p.accessTTL = -time.Minute // already expired at issuance

	signed, err := p.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = p.VerifyAndGetSubject(signed)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerify_WrongKey(t *testing.T) {
	p := newTestProvider(t)
	other := newTestProvider(t)
	other.secret = []byte("a completely different signing key")

	signed, err := other.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = p.VerifyAndGetSubject(signed)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_TamperedPayload(t *testing.T) {
	p := newTestProvider(t)

	signed, err := p.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	// Flip a character in the payload segment.
	tampered := []byte(signed)
	mid := len(tampered) / 2
	if tampered[mid] == 'a' {
		tampered[mid] = 'b'
	} else {
		tampered[mid] = 'a'
	}

	_, err = p.VerifyAndGetSubject(string(tampered))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerify_IssuerMismatch(t *testing.T) {
	p := newTestProvider(t)
	other := newTestProvider(t)
	other.issuer = "SOMEONE_ELSE"

	signed, err := other.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = p.VerifyAndGetSubject(signed)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_AudienceMismatch(t *testing.T) {
	p := newTestProvider(t)
	other := newTestProvider(t)
	other.audience = "OTHER_CLIENTS"

	signed, err := other.CreateAccessToken(testPrincipal())
	require.NoError(t, err)

	_, err = p.VerifyAndGetSubject(signed)
	assert.True(t, errors.Is(err, domain.ErrTokenInvalid))
}

func TestVerify_RejectsOtherHMACVariant(t *testing.T) {
	p := newTestProvider(t)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		Subject:   "alice@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(p.secret)
	require.NoError(t, err)

	_, err = p.VerifyAndGetSubject(signed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestVerify_Garbage(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.VerifyAndGetSubject("not-a-jwt")
	assert.True(t, errors.Is(err, domain.ErrTokenMalformed))
}
