package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/harbor-house/apiserver/internal/identity"
)

// SessionHandler exposes the current identity-provider session.
type SessionHandler struct {
	provider identity.SessionProvider
}

// NewSessionHandler constructs a SessionHandler with the provided
// dependencies.
func NewSessionHandler(provider identity.SessionProvider) *SessionHandler {
	return &SessionHandler{provider: provider}
}

// SessionRouter registers session routes on the given router.
func SessionRouter(r chi.Router, provider identity.SessionProvider, authMiddleware func(http.Handler) http.Handler) {
	handler := NewSessionHandler(provider)

	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireSession verifies the identity provider's session token and
// injects the subject and raw token into the request context.
func RequireSession(sessionJWTSecret string) func(http.Handler) http.Handler {
	secret := []byte(sessionJWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := identity.VerifySessionToken(tokenString, secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			ctx = identity.WithSessionToken(ctx, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Me returns the current authenticated session.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, err := h.provider.CurrentSession(r.Context())
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
