package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-account-api/internal/domain"
)

// writeJSONError writes a JSON-encoded error response with the correct Content-Type.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// respondAuthError maps token verification failures to the client-facing 401
// body. An expired token gets its own message so clients can prompt a fresh
// login; everything else is reported uniformly to avoid leaking why a token
// was rejected.
func respondAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrTokenExpired) {
		writeJSONError(w, http.StatusUnauthorized, "your session has expired, please log in again")
		return
	}
	writeJSONError(w, http.StatusUnauthorized, "authentication failed")
}
