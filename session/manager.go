package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/events"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Default failure messages, used when the server does not provide one.
const (
	MsgLoginFailed          = "Login failed"
	MsgRegistrationFailed   = "Registration failed"
	MsgPasswordChangeFailed = "Password change failed"
)

const (
	defaultLogoutTimeout  = 5 * time.Second
	defaultRefreshTimeout = 10 * time.Second
)

// Manager owns the client session: the current user, the token pair and the loading/error flags.
// All mutation goes through its operations. It is safe for concurrent use.
type Manager struct {
	api    *authapi.Client // login, refresh and logout notification; never carries the session bearer
	authed *authapi.Client // calls that go through the authenticated pipeline
	client *http.Client

	store     credentials.Store
	publisher events.Publisher
	logger    zerolog.Logger
	nowFunc   func() time.Time

	logoutTimeout  time.Duration
	refreshTimeout time.Duration
	baseClient     *http.Client

	mu           sync.RWMutex
	user         *users.User
	tokens       credentials.TokenPair
	expiry       time.Time
	restoring    bool
	busy         int
	errMsg       string
	epoch        uint64
	flight       *flight
	refreshState RefreshState

	storeMu sync.Mutex     // serialises store writes against epoch checks
	pending sync.WaitGroup // logout notifications, refresh exchanges and event delivery
}

type ManagerOption func(*Manager)

// WithHTTPClient sets the client requests are sent with. Its Transport becomes the base of the pipeline.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) {
		m.baseClient = c
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithPublisher(p events.Publisher) ManagerOption {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = nowFunc
	}
}

// WithLogoutTimeout bounds the best-effort remote logout notification.
func WithLogoutTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.logoutTimeout = d
	}
}

// WithRefreshTimeout bounds a single refresh exchange.
func WithRefreshTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshTimeout = d
	}
}

// New creates an empty session bound to the auth service at baseURL.
// The session starts in the loading state until RestoreSession has run.
func New(baseURL string, store credentials.Store, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidConfig, "[session.New] credential store is required")
	}

	m := &Manager{
		store:     store,
		publisher: events.Nop{},
		logger:    log.Logger,
		restoring: true,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.logoutTimeout <= 0 {
		m.logoutTimeout = defaultLogoutTimeout
	}
	if m.refreshTimeout <= 0 {
		m.refreshTimeout = defaultRefreshTimeout
	}
	if m.baseClient == nil {
		m.baseClient = &http.Client{Timeout: 30 * time.Second}
	}

	plain := *m.baseClient
	api, err := authapi.NewClient(baseURL, &plain)
	if err != nil {
		return nil, errors.Wrap(err, "[session.New] authapi.NewClient")
	}
	m.api = api

	authed := *m.baseClient
	authed.Transport = NewTransport(m, m.baseClient.Transport)
	m.client = &authed
	m.authed = api.WithHTTPClient(m.client)

	return m, nil
}

// HTTPClient returns a client that authenticates with the session credential and refreshes it on 401.
// Use it for application API calls.
func (m *Manager) HTTPClient() *http.Client {
	return m.client
}

// API returns the auth service client used for authenticated calls.
func (m *Manager) API() *authapi.Client {
	return m.authed
}

// Close waits for background work (logout notifications, refresh exchanges, event delivery).
func (m *Manager) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user.Clone()
}

// Loading reports whether restore has not finished yet or an operation is in flight.
func (m *Manager) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restoring || m.busy > 0
}

// Error returns the last operation failure message, or "".
func (m *Manager) Error() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.errMsg
}

func (m *Manager) SetError(msg string) {
	m.mu.Lock()
	m.errMsg = msg
	m.mu.Unlock()
}

func (m *Manager) ClearError() {
	m.SetError("")
}

// Snapshot is a consistent read of the session. It never contains tokens.
type Snapshot struct {
	User          *users.User
	Authenticated bool
	Loading       bool
	Error         string
	Expiry        time.Time
	RefreshState  RefreshState
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		User:          m.user.Clone(),
		Authenticated: m.authenticatedLocked(),
		Loading:       m.restoring || m.busy > 0,
		Error:         m.errMsg,
		Expiry:        m.expiry,
		RefreshState:  m.refreshState,
	}
}

// Token implements oauth2.TokenSource. It never refreshes: the server's 401 is the expiry signal.
func (m *Manager) Token() (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.tokens.AccessToken == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  m.tokens.AccessToken,
		RefreshToken: m.tokens.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       m.expiry,
	}, nil
}

// credential returns the current access token and the epoch it belongs to.
func (m *Manager) credential() (string, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens.AccessToken, m.epoch
}

// begin marks an operation as in flight and clears the error flag. The returned func ends it.
func (m *Manager) begin() func() {
	m.mu.Lock()
	m.busy++
	m.errMsg = ""
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.busy--
		m.mu.Unlock()
	}
}

// install replaces the whole session with a freshly authenticated one and returns its epoch.
func (m *Manager) install(tr *authapi.TokenResponse, user *users.User) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.epoch++
	m.tokens = tr.Pair()
	m.expiry = tr.Expiry(m.nowFunc())
	m.user = user.Clone()
	m.flight = nil
	m.refreshState = StateIdle
	return m.epoch
}

// persist writes pair to the store unless the session has moved on since epoch.
func (m *Manager) persist(ctx context.Context, epoch uint64, pair credentials.TokenPair) {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	m.mu.RLock()
	current := m.epoch == epoch
	m.mu.RUnlock()
	if !current {
		return
	}
	if err := m.store.Save(context.WithoutCancel(ctx), pair); err != nil {
		m.logger.Err(err).Msg("[session.Manager] credential store save failed")
	}
}

// publish delivers e in the background. Failures are logged only.
func (m *Manager) publish(t events.Type, user *users.User, reason string) {
	e := events.Event{Type: t, Reason: reason, Time: m.nowFunc()}
	if user != nil {
		e.UserID = user.ID
		e.Email = user.Email
	}
	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.logoutTimeout)
		defer cancel()
		if err := m.publisher.Publish(ctx, e); err != nil {
			m.logger.Err(err).Str("event", string(t)).Msg("[session.Manager] event publish failed")
		}
	}()
}
