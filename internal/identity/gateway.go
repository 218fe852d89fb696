package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/harbor-house/apiserver/config"
	"github.com/rs/zerolog/log"
)

const sessionTokenHeader = "X-Session-Token"

// APIError is a failure reported by the identity provider's API, as
// opposed to a transport failure reaching it.
type APIError struct {
	Status int      `json:"status"`
	Errors []string `json:"errors"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("identity gateway returned status %d", e.Status)
	}
	return strings.Join(e.Errors, ",\n")
}

// GatewayClient is the HTTP implementation of SessionProvider. Session
// tokens are verified locally before any network call; resolved sessions
// are cached per token until Refresh invalidates them.
type GatewayClient struct {
	http   *resty.Client
	secret []byte

	mu       sync.RWMutex
	sessions map[string]Session
}

// NewGatewayClient constructs a client for the configured identity
// provider.
func NewGatewayClient(cfg config.IdentityConfig) *GatewayClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetAuthToken(cfg.APIKey)

	return &GatewayClient{
		http:     client,
		secret:   []byte(cfg.SessionJWTSecret),
		sessions: make(map[string]Session),
	}
}

// CurrentSession resolves the session for the token carried in ctx.
func (c *GatewayClient) CurrentSession(ctx context.Context) (Session, error) {
	token, ok := SessionTokenFromContext(ctx)
	if !ok {
		return Session{}, ErrNoSession
	}
	if _, err := VerifySessionToken(token, c.secret); err != nil {
		return Session{}, ErrNoSession
	}

	c.mu.RLock()
	session, cached := c.sessions[token]
	c.mu.RUnlock()
	if cached {
		return session, nil
	}

	var fetched Session
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(sessionTokenHeader, token).
		SetResult(&fetched).
		SetError(apiErr).
		Get("/v1/sessions/current")
	if err != nil {
		return Session{}, fmt.Errorf("identity gateway unreachable: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return Session{}, apiErr
	}

	c.mu.Lock()
	c.sessions[token] = fetched
	c.mu.Unlock()
	return fetched, nil
}

// SetUserMetadata merges a patch into the user's public metadata.
func (c *GatewayClient) SetUserMetadata(ctx context.Context, userID string, patch map[string]any) error {
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"public_metadata": patch}).
		SetError(apiErr).
		Patch("/v1/users/" + userID + "/metadata")
	if err != nil {
		return fmt.Errorf("identity gateway unreachable: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

// UpdateRoles replaces the user's role labels.
func (c *GatewayClient) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	apiErr := &APIError{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{"roles": roles}).
		SetError(apiErr).
		Put("/v1/users/" + userID + "/roles")
	if err != nil {
		return fmt.Errorf("identity gateway unreachable: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

// Refresh drops the user's cached sessions so the next CurrentSession
// re-reads the provider and sees freshly written metadata.
func (c *GatewayClient) Refresh(ctx context.Context, userID string) error {
	c.mu.Lock()
	for token, session := range c.sessions {
		if session.UserID == userID {
			delete(c.sessions, token)
		}
	}
	c.mu.Unlock()

	log.Debug().Str("component", "GatewayClient").Str("user_id", userID).Msg("session cache invalidated")
	return nil
}
