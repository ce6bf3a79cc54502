package session

import "github.com/jrsteele09/go-auth-client/users"

// IsAuthenticated is true only when both an access token and a user are present.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authenticatedLocked()
}

// HasRole is an exact match against the current user's role. False without a user.
func (m *Manager) HasRole(role users.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.HasRole(role)
}

// HasAnyRole reports whether the current user's role is one of roles. False without a user.
func (m *Manager) HasAnyRole(roles ...users.Role) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.HasAnyRole(roles...)
}

func (m *Manager) authenticatedLocked() bool {
	return m.tokens.AccessToken != "" && m.user != nil
}
