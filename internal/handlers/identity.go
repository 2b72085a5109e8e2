// internal/handlers/identity.go
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/auth"
	"github.com/google/uuid"
)

// TokenCookie holds the participant token issued to browsers.
const TokenCookie = "stp_token"

// requestToken returns the bearer token or the token cookie, if any.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// EnsureParticipant returns the caller's participant id. Callers without a
// valid token get a fresh anonymous id, delivered as a cookie and echoed
// in the X-Participant-Token header for non-browser clients.
func EnsureParticipant(w http.ResponseWriter, r *http.Request) (string, error) {
	if token := requestToken(r); token != "" {
		if id, err := auth.AuthenticateJWT(token); err == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	token, err := auth.CreateJWT(id)
	if err != nil {
		return "", fmt.Errorf("issue participant token: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("X-Participant-Token", token)
	return id, nil
}
