package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/events"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// RefreshState is the refresh coordinator's state.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateRefreshing
	StateFailed
)

func (s RefreshState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRefreshing:
		return "REFRESHING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// RefreshState returns the coordinator's current state.
func (m *Manager) RefreshState() RefreshState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshState
}

var (
	// errNoRefreshToken means the session was ended because there was nothing to refresh with.
	// The caller sees the original 401.
	errNoRefreshToken = apperrors.ErrNoRefreshToken

	// errStaleSession means the 401 belongs to a session that has since been replaced.
	// The caller sees the original 401 and nothing is refreshed.
	errStaleSession = errors.New("request belongs to a previous session")

	// errNoSession means an anonymous request got a 401 while nobody is logged in.
	// The caller sees the original 401 and the coordinator state is left alone.
	errNoSession = errors.New("no session to refresh")
)

// flight is one refresh exchange shared by every 401 of the same wave.
// token and err are written before done is closed.
type flight struct {
	done  chan struct{}
	epoch uint64
	token string
	err   error
}

// refreshFor returns the access token to replay a request with after it got a 401 using stale.
// At most one exchange is in flight; every 401 that arrives meanwhile waits for it.
// A 401 for a token that has already been rotated replays with the current token.
func (m *Manager) refreshFor(ctx context.Context, stale string, epoch uint64) (string, error) {
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		return "", errStaleSession
	}

	f := m.flight
	if f == nil {
		if current := m.tokens.AccessToken; current != "" && current != stale {
			m.mu.Unlock()
			return current, nil
		}
		if stale == "" && !m.hasSessionLocked() {
			m.mu.Unlock()
			return "", errNoSession
		}
		if m.tokens.RefreshToken == "" {
			prev, user := m.resetLocked()
			m.refreshState = StateFailed
			m.mu.Unlock()
			m.afterReset(ctx, prev, user, events.SessionExpired, "no refresh token")
			return "", errNoRefreshToken
		}

		f = &flight{done: make(chan struct{}), epoch: m.epoch}
		m.flight = f
		m.refreshState = StateRefreshing
		m.pending.Add(1)
		go m.exchange(f, m.tokens.RefreshToken)
	}
	m.mu.Unlock()

	select {
	case <-f.done:
		return f.token, f.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// exchange runs the refresh call for f detached from any single request's context,
// then applies the result if the session is still the one that started it.
func (m *Manager) exchange(f *flight, refreshToken string) {
	defer m.pending.Done()
	defer close(f.done)

	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	tr, err := m.api.Refresh(ctx, refreshToken)

	m.mu.Lock()
	if m.flight == f {
		m.flight = nil
	}

	if f.epoch != m.epoch {
		m.mu.Unlock()
		f.err = &authapi.Error{
			Kind:    authapi.KindAuthRejected,
			Status:  http.StatusUnauthorized,
			Message: "session ended during refresh",
			Err:     apperrors.ErrSessionEnded,
		}
		return
	}

	if err != nil {
		prev, user := m.resetLocked()
		m.refreshState = StateFailed
		m.mu.Unlock()

		m.logger.Err(err).Msg("[session.Manager] token refresh failed, ending session")
		f.err = err
		m.afterReset(ctx, prev, user, events.SessionExpired, "refresh failed")
		return
	}

	m.tokens = tr.Pair()
	m.expiry = tr.Expiry(m.nowFunc())
	if tr.User != nil {
		m.user = tr.User.Clone()
	}
	m.refreshState = StateIdle
	user := m.user.Clone()
	m.mu.Unlock()

	f.token = tr.AccessToken
	m.persist(ctx, f.epoch, tr.Pair())
	m.publish(events.TokenRefreshed, user, "")
}

func (m *Manager) hasSessionLocked() bool {
	return m.user != nil || m.tokens.AccessToken != "" || m.tokens.RefreshToken != ""
}
