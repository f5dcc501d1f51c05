package server

import (
	"context"
	"net/http"
	"strings"

	"briefcast/internal/config"
)

type contextKey string

const userIDKey contextKey = "briefcast.user_id"

// Verifier resolves a bearer token to a user ID. The default implementation
// reads the static token map from configuration; a deployment behind a real
// identity provider swaps this boundary out.
type Verifier interface {
	Verify(token string) (string, bool)
}

type tokenVerifier struct {
	tokens map[string]string
}

// NewConfigVerifier builds a Verifier over the configured token map.
func NewConfigVerifier(cfg *config.Config) Verifier {
	tokens := make(map[string]string, len(cfg.API.AuthTokens))
	for token, userID := range cfg.API.AuthTokens {
		token = strings.TrimSpace(token)
		userID = strings.TrimSpace(userID)
		if token == "" || userID == "" {
			continue
		}
		tokens[token] = userID
	}
	return &tokenVerifier{tokens: tokens}
}

func (v *tokenVerifier) Verify(token string) (string, bool) {
	userID, ok := v.tokens[token]
	return userID, ok
}

// requireAuth wraps a handler with bearer-token verification and stashes the
// resolved user ID on the request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, ok := s.verifier.Verify(strings.TrimPrefix(auth, "Bearer "))
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	}
}

func requestUser(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
