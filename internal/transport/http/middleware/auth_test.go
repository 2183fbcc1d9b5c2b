package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-account-api/internal/config"
	"github.com/go-account-api/internal/domain"
	jwtinfra "github.com/go-account-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, accessTTL time.Duration) *jwtinfra.Provider {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:       "0123456789abcdef0123456789abcdef",
		JWTIssuer:       "ACCOUNT_API",
		JWTAudience:     "ACCOUNT_API_CLIENTS",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func signedToken(t *testing.T, p *jwtinfra.Provider) string {
	t.Helper()
	token, err := p.CreateAccessToken(domain.Principal{
		Subject:     "alice@example.com",
		Authorities: []string{domain.RoleUser, "READ:USER"},
	})
	require.NoError(t, err)
	return token
}

func TestGate_ValidToken_InjectsPrincipal(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	var got domain.Principal
	var ok bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, p))
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", got.Subject)
	assert.True(t, got.HasAuthority(domain.RoleUser))
	assert.True(t, got.HasAuthority("READ:USER"))
}

func TestGate_MissingHeader_PassesWithoutPrincipal(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	var ok bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, ok)
}

func TestGate_MalformedHeader_PassesWithoutPrincipal(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGate_InvalidToken_Rejected(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "authentication failed")
}

func TestGate_ExpiredToken_SessionExpiredMessage(t *testing.T) {
	expired := newTestProvider(t, -time.Minute)
	token := signedToken(t, expired)

	p := newTestProvider(t, time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "session has expired")
}

func TestGate_Preflight_SkipsVerification(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	req := httptest.NewRequest(http.MethodOptions, "/users/profile", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGate_PublicRoute_SkipsVerification(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	public := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/users/login"},
		{http.MethodPost, "/users"},
		{http.MethodPost, "/users/verify/code"},
		{http.MethodGet, "/users/refresh/token"},
		{http.MethodGet, "/users/verify/account/some-key"},
		{http.MethodGet, "/users/verify/password/some-key"},
		{http.MethodPost, "/users/password-resets/some-key"},
	}
	for _, tc := range public {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer not-a-real-token")
		rr := httptest.NewRecorder()
		AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code, "%s %s should bypass the gate", tc.method, tc.path)
	}
}

func TestGate_GetUsers_IsNotPublic(t *testing.T) {
	p := newTestProvider(t, time.Minute)

	// Only POST /users (registration) is public.
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	AuthorizationGate(p)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
