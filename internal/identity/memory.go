package identity

import (
	"context"
	"sync"
)

// MemoryProvider is an in-memory SessionProvider for tests and local
// development. It keeps one signed-in session plus per-user metadata and
// role state.
type MemoryProvider struct {
	mu       sync.RWMutex
	session  *Session
	metadata map[string]map[string]any
	roles    map[string][]string
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		metadata: make(map[string]map[string]any),
		roles:    make(map[string][]string),
	}
}

// SignIn installs the current session.
func (m *MemoryProvider) SignIn(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.Metadata == nil {
		session.Metadata = make(map[string]any)
	}
	m.session = &session
	m.metadata[session.UserID] = session.Metadata
}

// SignOut clears the current session.
func (m *MemoryProvider) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

func (m *MemoryProvider) CurrentSession(ctx context.Context) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, ErrNoSession
	}
	return *m.session, nil
}

func (m *MemoryProvider) SetUserMetadata(ctx context.Context, userID string, patch map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.metadata[userID]
	if !ok {
		stored = make(map[string]any)
		m.metadata[userID] = stored
	}
	for key, value := range patch {
		stored[key] = value
	}
	return nil
}

func (m *MemoryProvider) UpdateRoles(ctx context.Context, userID string, roles []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[userID] = append([]string(nil), roles...)
	return nil
}

func (m *MemoryProvider) Refresh(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil && m.session.UserID == userID {
		refreshed := make(map[string]any, len(m.metadata[userID]))
		for key, value := range m.metadata[userID] {
			refreshed[key] = value
		}
		m.session.Metadata = refreshed
	}
	return nil
}

// Roles reports the stored role labels for a user.
func (m *MemoryProvider) Roles(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles[userID]
}

// Metadata reports the stored metadata blob for a user.
func (m *MemoryProvider) Metadata(userID string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metadata[userID]
}
