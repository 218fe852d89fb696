package identity

import (
	"context"
	"errors"
)

// ErrNoSession is returned when no authenticated session is available.
var ErrNoSession = errors.New("no active session")

// Session is the identity provider's view of a signed-in user: the session
// id, the provider's subject for the user, and the public metadata blob
// (roles, onboarding-completion flag).
type Session struct {
	ID       string         `json:"id"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"public_metadata"`
}

// OnboardingComplete reports whether the session's metadata carries the
// onboarding-completion flag.
func (s Session) OnboardingComplete() bool {
	complete, _ := s.Metadata["onboardingComplete"].(bool)
	return complete
}

// SessionProvider is the capability interface over the external identity
// provider. The workflow depends only on these shapes, never on a concrete
// vendor client.
type SessionProvider interface {
	// CurrentSession resolves the session for the request carried in ctx.
	CurrentSession(ctx context.Context) (Session, error)

	// SetUserMetadata merges a patch into the user's public metadata.
	SetUserMetadata(ctx context.Context, userID string, patch map[string]any) error

	// UpdateRoles replaces the user's role labels.
	UpdateRoles(ctx context.Context, userID string, roles []string) error

	// Refresh reloads the local session/user state so metadata written via
	// SetUserMetadata becomes visible to subsequent requests.
	Refresh(ctx context.Context, userID string) error
}

type contextKey string

const contextTokenKey contextKey = "session-token"

// WithSessionToken attaches the request's session token to the context.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextTokenKey, token)
}

// SessionTokenFromContext extracts the session token stored by
// WithSessionToken.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextTokenKey).(string)
	return token, ok && token != ""
}
