// Package authtest runs an in-process fake of the auth service for tests and demos.
// It speaks the same envelope and endpoints as the real service under /api/auth.
package authtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	issuer = "authtest"

	// APIPrefix is the path every endpoint lives under. URL() includes it.
	APIPrefix = "/api"
)

type account struct {
	user         users.User
	passwordHash string
}

// Server is the fake auth service. All knobs are safe to call while requests are in flight.
type Server struct {
	srv    *httptest.Server
	mux    *http.ServeMux
	logger zerolog.Logger

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	nowFunc    func() time.Time

	mu            sync.Mutex
	accounts      map[string]*account // by email
	nextID        int64
	refreshTokens map[string]*storedRefreshToken
	generation    int64
	rejectRefresh bool
	failLogout    bool
	refreshDelay  time.Duration
	refreshGate   chan struct{}
	overrides     map[string]int
	calls         map[string]int
	logoutBearers []string
}

type ServerOption func(*Server)

// WithAccessTokenTTL sets access token lifetime (default 15m).
func WithAccessTokenTTL(d time.Duration) ServerOption {
	return func(s *Server) {
		s.accessTTL = d
	}
}

// WithRefreshTokenTTL sets refresh token lifetime (default: no expiry).
func WithRefreshTokenTTL(d time.Duration) ServerOption {
	return func(s *Server) {
		s.refreshTTL = d
	}
}

// WithNowFunc sets the clock used for token issue and validation.
func WithNowFunc(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer starts a fake auth service. Close it when done.
func NewServer(options ...ServerOption) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		logger:        zerolog.Nop(),
		secret:        []byte(uuid.NewString()),
		accessTTL:     15 * time.Minute,
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]*storedRefreshToken),
		overrides:     make(map[string]int),
		calls:         make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.nowFunc == nil {
		s.nowFunc = time.Now
	}

	s.routes()
	s.srv = httptest.NewServer(s.mux)
	return s
}

// URL is the base URL to hand to clients, e.g. http://127.0.0.1:port/api.
func (s *Server) URL() string {
	return s.srv.URL + APIPrefix
}

// Client returns an *http.Client configured for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

func (s *Server) Close() {
	s.srv.Close()
}

// AddUser registers an account with password and returns the stored user (ID assigned when zero).
func (s *Server) AddUser(u users.User, password string) (*users.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.AddUser] hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[u.Email]; exists {
		return nil, errors.Errorf("[Server.AddUser] email %q already registered", u.Email)
	}
	if u.ID == 0 {
		s.nextID++
		u.ID = s.nextID
	} else if u.ID > s.nextID {
		s.nextID = u.ID
	}
	if u.Role == "" {
		u.Role = users.RoleEmployee
	}
	s.accounts[u.Email] = &account{user: u, passwordHash: string(hash)}
	return u.Clone(), nil
}

// UpdateUser replaces the stored profile of the account with u.Email.
func (s *Server) UpdateUser(u users.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[u.Email]
	if !ok {
		return errors.Errorf("[Server.UpdateUser] unknown email %q", u.Email)
	}
	u.ID = acc.user.ID
	acc.user = u
	return nil
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	clear(s.refreshTokens)
	s.mu.Unlock()
}

// SetRejectRefresh makes /auth/refresh answer 401 regardless of the token.
func (s *Server) SetRejectRefresh(reject bool) {
	s.mu.Lock()
	s.rejectRefresh = reject
	s.mu.Unlock()
}

// SetFailLogout makes /auth/logout answer 500.
func (s *Server) SetFailLogout(fail bool) {
	s.mu.Lock()
	s.failLogout = fail
	s.mu.Unlock()
}

// SetRefreshDelay delays every refresh response.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

// HoldRefresh blocks refresh handlers until the returned release func is called.
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.refreshGate = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.refreshGate == gate {
				s.refreshGate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// SetStatus forces every request to path (e.g. "/auth/me") to answer status. Zero clears it.
func (s *Server) SetStatus(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.overrides, path)
		return
	}
	s.overrides[path] = status
}

// Calls returns how many requests reached path (e.g. "/auth/refresh").
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LogoutBearers returns the bearer tokens sent to /auth/logout, in order. Empty strings mean none was sent.
func (s *Server) LogoutBearers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logoutBearers...)
}

// RefreshTokenCount returns the number of live refresh tokens.
func (s *Server) RefreshTokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refreshTokens)
}

// Handle registers an application endpoint under APIPrefix, e.g. Handle("/reports", h).
func (s *Server) Handle(path string, h http.HandlerFunc) {
	s.mux.HandleFunc(APIPrefix+path, ChainMiddleware(h, s.recordCall, s.LoggingMiddleware))
}

// HandleProtected registers an application endpoint that requires a valid bearer and one of roles (any role when empty).
func (s *Server) HandleProtected(path string, h http.HandlerFunc, roles ...users.Role) {
	s.mux.HandleFunc(APIPrefix+path, ChainMiddleware(h, s.recordCall, s.LoggingMiddleware, s.RequireAuth(), s.RequireRole(roles...)))
}
