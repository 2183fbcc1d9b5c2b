package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-account-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps login, MFA-verify, and refresh responses.
type AuthEnvelope struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	MfaRequired  bool      `json:"mfa_required,omitempty"`
	User         *SafeUser `json:"user,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// SafeUser is the client-facing user projection. The password hash never
// leaves the domain layer, but the projection also keeps internal bookkeeping
// fields out of responses.
type SafeUser struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Title     string  `json:"title,omitempty"`
	Bio       string  `json:"bio,omitempty"`
	Role      string  `json:"role"`
	Enabled   bool    `json:"enabled"`
	UsingMfa  bool    `json:"using_mfa"`
	MfaType   string  `json:"mfa_type,omitempty"`
}

func toSafeUser(u *domain.User) *SafeUser {
	if u == nil {
		return nil
	}
	return &SafeUser{
		ID:        u.UserID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Title:     u.Title,
		Bio:       u.Bio,
		Role:      u.Role,
		Enabled:   u.Enabled,
		UsingMfa:  u.UsingMfa,
		MfaType:   u.MfaType,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// respondError translates domain errors into status codes and client-safe
// messages. Anything unrecognized becomes a 500 with no detail leaked.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "your session has expired, please log in again")
	case errors.Is(err, domain.ErrMfaCodeInvalid),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenMalformed):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, domain.ErrVerificationExpired):
		writeError(w, http.StatusBadRequest, "this link has expired, please request a new one")
	case errors.Is(err, domain.ErrVerificationNotFound):
		writeError(w, http.StatusBadRequest, "this link is invalid or has already been used")
	case errors.Is(err, domain.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, "passwords do not match")
	case errors.Is(err, domain.ErrNotificationFailed):
		writeError(w, http.StatusBadGateway, "we could not deliver the message, please try again")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
