package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-account-api/internal/application/auth"
	"github.com/go-account-api/internal/application/user"
	"github.com/go-account-api/internal/domain"
	"github.com/go-account-api/internal/pkg/validate"
	"github.com/go-account-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles registration, login, and the verification endpoints.
type UserHandler struct {
	users user.Service
	auth  auth.Service
}

func NewUserHandler(users user.Service, authSvc auth.Service) *UserHandler {
	return &UserHandler{users: users, auth: authSvc}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.Register(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		User:    toSafeUser(u),
		Message: "account created, please check your email to verify it",
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.auth.Login(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	if res.MfaRequired {
		writeJSON(w, http.StatusOK, AuthEnvelope{
			MfaRequired: true,
			User:        toSafeUser(res.User),
			Message:     "verification code sent",
		})
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         toSafeUser(res.User),
	})
}

func (h *UserHandler) VerifyMfaCode(w http.ResponseWriter, r *http.Request) {
	var req auth.MfaVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := h.auth.VerifyMfaCode(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh exchanges a refresh token, carried as a bearer header, for a new
// pair. The route is public so the gate does not touch the header first.
func (h *UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		writeError(w, http.StatusBadRequest, "missing refresh token")
		return
	}
	pair, err := h.auth.Refresh(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *UserHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	res, err := h.users.ActivateAccount(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	msg := "account verified"
	if !res.Activated {
		msg = "account already verified"
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: msg})
}

// PasswordResets serves both halves of the reset flow on one route.
// Initiation takes the account email, completion takes the reset key; emails
// always carry an '@' and keys never do, so the path segment disambiguates.
func (h *UserHandler) PasswordResets(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	if strings.Contains(target, "@") {
		if err := h.users.RequestPasswordReset(r.Context(), target); err != nil {
			respondError(w, err)
			return
		}
		// Identical response whether or not the account exists.
		writeJSON(w, http.StatusAccepted, MessageEnvelope{
			Message: "if the account exists, a reset link has been sent",
		})
		return
	}

	var req user.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.users.ResetPassword(r.Context(), target, req); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

func (h *UserHandler) VerifyResetKey(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.VerifyResetKey(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{User: toSafeUser(u)})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	u, err := h.users.GetProfile(r.Context(), p.Subject)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSafeUser(u))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), p.Subject, req)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSafeUser(u))
}

func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.users.ListRoles(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}
