package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-account-api/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// TokenVerifier validates a bearer token and extracts its identity claims.
type TokenVerifier interface {
	VerifyAndGetSubject(token string) (string, error)
	GetAuthorities(token string) ([]string, error)
}

// publicRoute reports whether the request may proceed without a bearer token.
// These are the unauthenticated surfaces: login, registration, token refresh,
// and the verification-link endpoints reached from email.
func publicRoute(r *http.Request) bool {
	path := r.URL.Path
	switch path {
	case "/users/login", "/users/verify/code", "/users/refresh/token":
		return true
	}
	if path == "/users" && r.Method == http.MethodPost {
		return true
	}
	for _, prefix := range []string{
		"/users/verify/account/",
		"/users/verify/password/",
		"/users/password-resets/",
	} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthorizationGate returns middleware that authenticates bearer tokens on
// every request. Preflight requests, public routes, and requests carrying no
// Authorization header pass through without a principal; endpoints that need
// one enforce it with RequirePrincipal. A present-but-invalid token is
// rejected here, so a bad credential never reaches a handler half-trusted.
func AuthorizationGate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || publicRoute(r) {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			subject, err := verifier.VerifyAndGetSubject(tokenStr)
			if err != nil {
				respondAuthError(w, err)
				return
			}
			authorities, err := verifier.GetAuthorities(tokenStr)
			if err != nil {
				respondAuthError(w, err)
				return
			}
			principal := domain.Principal{Subject: subject, Authorities: authorities}
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext extracts the authenticated principal from the request context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(domain.Principal)
	return p, ok
}
