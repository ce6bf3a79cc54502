package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/events"
	"github.com/jrsteele09/go-auth-client/users"
)

// Login authenticates with email and password and installs the new session.
// On failure the session is left unauthenticated and Error() holds the message.
// The returned error is an *authapi.Error whose Message is always set.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.User, error) {
	done := m.begin()
	defer done()

	tr, err := m.api.Login(ctx, authapi.LoginRequest{Email: email, Password: password})
	if err == nil && tr.User == nil {
		err = &authapi.Error{Kind: authapi.KindServerFailure, Status: http.StatusOK, Message: "login response missing user"}
	}
	if err != nil {
		return nil, m.fail(err, MsgLoginFailed)
	}

	epoch := m.install(tr, tr.User)
	m.persist(ctx, epoch, tr.Pair())
	m.publish(events.UserLogin, tr.User, "")

	return tr.User.Clone(), nil
}

// Logout ends the session locally and always succeeds. The server is notified in the
// background with the pre-logout access token; a failed notification is only logged.
func (m *Manager) Logout(ctx context.Context) {
	m.end(ctx, events.UserLogout, "")
}

// Register creates a user on the server. It does not touch the session (no auto-login).
func (m *Manager) Register(ctx context.Context, req authapi.RegisterRequest) (*users.User, error) {
	done := m.begin()
	defer done()

	u, err := m.authed.Register(ctx, req)
	if err != nil {
		return nil, m.fail(err, MsgRegistrationFailed)
	}
	m.publish(events.UserRegistered, u, "")
	return u, nil
}

// ChangePassword changes the current user's password.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	done := m.begin()
	defer done()

	err := m.authed.ChangePassword(ctx, authapi.ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		return m.fail(err, MsgPasswordChangeFailed)
	}
	m.publish(events.PasswordChanged, m.User(), "")
	return nil
}

// RestoreSession seeds the session from the credential store and validates it against the server.
// Any failure degrades to "not authenticated". Loading is false once it returns.
// It returns the restored user, or nil.
func (m *Manager) RestoreSession(ctx context.Context) *users.User {
	defer func() {
		m.mu.Lock()
		m.restoring = false
		m.mu.Unlock()
	}()

	pair, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrNotFound) {
			m.logger.Warn().Err(err).Msg("[Manager.RestoreSession] credential store unreadable, clearing")
			m.end(ctx, events.SessionExpired, "credential store unreadable")
		}
		return nil
	}

	m.mu.Lock()
	m.epoch++
	epoch := m.epoch
	m.tokens = *pair
	m.user = nil
	m.flight = nil
	m.refreshState = StateIdle
	m.mu.Unlock()

	u, err := m.authed.Me(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("[Manager.RestoreSession] stored session rejected")
		m.endIfCurrent(ctx, epoch, events.SessionExpired, "restore failed")
		return nil
	}

	m.mu.Lock()
	if m.epoch != epoch || m.tokens.AccessToken == "" {
		m.mu.Unlock()
		return nil
	}
	m.user = u.Clone()
	m.mu.Unlock()

	m.publish(events.SessionRestored, u, "")
	return u
}

// RefreshUser re-fetches the profile and replaces the user wholesale.
// On failure the session is untouched and nil is returned.
func (m *Manager) RefreshUser(ctx context.Context) *users.User {
	_, epoch := m.credential()

	u, err := m.authed.Me(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("[Manager.RefreshUser] profile fetch failed")
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || !m.authenticatedLocked() {
		return nil
	}
	m.user = u.Clone()
	return u
}

// fail records the failure message on the session and returns err with the message filled in.
func (m *Manager) fail(err error, fallback string) error {
	var out authapi.Error
	var apiErr *authapi.Error
	if errors.As(err, &apiErr) {
		out = *apiErr
	} else {
		out = authapi.Error{Kind: authapi.KindNetworkFailure, Err: err}
	}
	if out.Message == "" {
		out.Message = fallback
	}
	m.SetError(out.Message)
	return &out
}

// endIfCurrent ends the session only if it is still the one identified by epoch.
func (m *Manager) endIfCurrent(ctx context.Context, epoch uint64, t events.Type, reason string) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	prev, user := m.resetLocked()
	m.mu.Unlock()
	m.afterReset(ctx, prev, user, t, reason)
}

func (m *Manager) end(ctx context.Context, t events.Type, reason string) {
	m.mu.Lock()
	prev, user := m.resetLocked()
	m.mu.Unlock()
	m.afterReset(ctx, prev, user, t, reason)
}

// resetLocked empties the session and starts a new epoch. The loading flag is kept.
func (m *Manager) resetLocked() (credentials.TokenPair, *users.User) {
	prev, user := m.tokens, m.user
	m.epoch++
	m.tokens = credentials.TokenPair{}
	m.user = nil
	m.expiry = time.Time{}
	m.errMsg = ""
	m.flight = nil
	m.refreshState = StateIdle
	return prev, user
}

// afterReset clears the store, notifies the server and publishes t.
func (m *Manager) afterReset(ctx context.Context, prev credentials.TokenPair, user *users.User, t events.Type, reason string) {
	m.storeMu.Lock()
	if err := m.store.Clear(context.WithoutCancel(ctx)); err != nil {
		m.logger.Err(err).Msg("[session.Manager] credential store clear failed")
	}
	m.storeMu.Unlock()

	if prev.AccessToken != "" {
		m.notifyLogout(prev.AccessToken)
	}
	if user != nil || prev.AccessToken != "" {
		m.publish(t, user, reason)
	}
}

func (m *Manager) notifyLogout(accessToken string) {
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.logoutTimeout)
		defer cancel()
		if err := m.api.Logout(ctx, accessToken); err != nil {
			m.logger.Err(err).Msg("[session.Manager] remote logout notification failed")
		}
	}()
}
