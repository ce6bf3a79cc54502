package session_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/authtest"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/events"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	managerEmail    = "mia.manager@example.com"
	managerPassword = "manager123"
	adminEmail      = "ada.admin@example.com"
	adminPassword   = "admin1234"
	staffEmail      = "eve.employee@example.com"
	staffPassword   = "employee1"
)

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// testFixture holds all test dependencies
type testFixture struct {
	srv       *authtest.Server
	store     credentials.Store
	publisher *recordingPublisher
	manager   *session.Manager
}

func setupTestFixture(t *testing.T, store credentials.Store) *testFixture {
	t.Helper()

	srv := authtest.NewServer()
	t.Cleanup(srv.Close)

	for _, u := range []struct {
		user     users.User
		password string
	}{
		{users.User{Email: managerEmail, FirstName: "Mia", LastName: "Manager", Role: users.RoleManager, JobTitle: "Team Lead"}, managerPassword},
		{users.User{Email: adminEmail, FirstName: "Ada", LastName: "Admin", Role: users.RoleAdmin}, adminPassword},
		{users.User{Email: staffEmail, FirstName: "Eve", LastName: "Employee", Role: users.RoleEmployee}, staffPassword},
	} {
		_, err := srv.AddUser(u.user, u.password)
		require.NoError(t, err)
	}

	if store == nil {
		store = credentials.NewMemoryStore()
	}
	f := &testFixture{srv: srv, store: store, publisher: &recordingPublisher{}}
	f.manager = f.newManager(t)
	return f
}

func (f *testFixture) newManager(t *testing.T) *session.Manager {
	t.Helper()
	m, err := session.New(f.srv.URL(), f.store,
		session.WithHTTPClient(f.srv.Client()),
		session.WithLogger(zerolog.Nop()),
		session.WithPublisher(f.publisher),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

func (f *testFixture) login(t *testing.T, email, password string) *users.User {
	t.Helper()
	u, err := f.manager.Login(context.Background(), email, password)
	require.NoError(t, err)
	return u
}

func (f *testFixture) storedPair(t *testing.T) *credentials.TokenPair {
	t.Helper()
	pair, err := f.store.Load(context.Background())
	require.NoError(t, err)
	return pair
}

func (f *testFixture) requireStoreEmpty(t *testing.T) {
	t.Helper()
	_, err := f.store.Load(context.Background())
	require.ErrorIs(t, err, credentials.ErrNotFound)
}

func (f *testFixture) waitIdle(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.manager.Close(ctx))
}

func TestNew_RequiresStoreAndValidURL(t *testing.T) {
	_, err := session.New("http://localhost:8080/api", nil)
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	_, err = session.New("not a url", credentials.NewMemoryStore())
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	t.Run("success installs session and persists tokens", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		require.False(t, f.manager.IsAuthenticated())

		u := f.login(t, managerEmail, managerPassword)
		require.Equal(t, managerEmail, u.Email)
		require.Equal(t, "Team Lead", u.JobTitle)

		require.True(t, f.manager.IsAuthenticated())
		require.Equal(t, u, f.manager.User())
		require.Empty(t, f.manager.Error())

		tok, err := f.manager.Token()
		require.NoError(t, err)
		pair := f.storedPair(t)
		require.Equal(t, tok.AccessToken, pair.AccessToken)
		require.Equal(t, tok.RefreshToken, pair.RefreshToken)
		require.False(t, tok.Expiry.IsZero())
	})

	t.Run("bad credentials leave session unauthenticated with server message", func(t *testing.T) {
		f := setupTestFixture(t, nil)

		u, err := f.manager.Login(context.Background(), managerEmail, "wrong-password")
		require.Nil(t, u)
		require.True(t, errors.Is(err, authapi.ErrAuthRejected))
		require.Equal(t, "Invalid email or password", authapi.MessageOf(err, ""))

		require.False(t, f.manager.IsAuthenticated())
		require.Equal(t, "Invalid email or password", f.manager.Error())
		f.requireStoreEmpty(t)
		require.Zero(t, f.srv.Calls(authapi.PathRefresh))
	})

	t.Run("unreachable server falls back to generic message", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.srv.Close()

		_, err := f.manager.Login(context.Background(), managerEmail, managerPassword)
		require.True(t, errors.Is(err, authapi.ErrNetworkFailure))
		require.Equal(t, session.MsgLoginFailed, f.manager.Error())
		require.Equal(t, session.MsgLoginFailed, authapi.MessageOf(err, ""))
		require.False(t, f.manager.IsAuthenticated())
	})

	t.Run("next login clears previous error", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		_, err := f.manager.Login(context.Background(), managerEmail, "nope")
		require.Error(t, err)
		require.NotEmpty(t, f.manager.Error())

		f.login(t, managerEmail, managerPassword)
		require.Empty(t, f.manager.Error())
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears state and store even when the notification fails", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.login(t, managerEmail, managerPassword)
		tok, err := f.manager.Token()
		require.NoError(t, err)

		f.srv.SetFailLogout(true)
		f.manager.Logout(context.Background())

		require.False(t, f.manager.IsAuthenticated())
		require.Nil(t, f.manager.User())
		f.requireStoreEmpty(t)
		_, err = f.manager.Token()
		require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

		f.waitIdle(t)
		require.Equal(t, []string{tok.AccessToken}, f.srv.LogoutBearers())
	})

	t.Run("succeeds with the server down", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.login(t, managerEmail, managerPassword)
		f.srv.Close()

		f.manager.Logout(context.Background())
		require.False(t, f.manager.IsAuthenticated())
		f.requireStoreEmpty(t)
		f.waitIdle(t)
	})

	t.Run("with a cancelled context still clears the store", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.login(t, managerEmail, managerPassword)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		f.manager.Logout(ctx)
		f.requireStoreEmpty(t)
	})

	t.Run("without a session sends no notification", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.manager.Logout(context.Background())
		f.waitIdle(t)
		require.Zero(t, f.srv.Calls(authapi.PathLogout))
	})
}

func TestRefresh_RetriesOnceWithNewToken(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)
	before := f.storedPair(t)

	f.srv.ExpireAccessTokens()

	u := f.manager.RefreshUser(context.Background())
	require.NotNil(t, u)
	require.Equal(t, managerEmail, u.Email)

	require.Equal(t, 1, f.srv.Calls(authapi.PathRefresh))
	require.Equal(t, 2, f.srv.Calls(authapi.PathMe))
	require.Equal(t, session.StateIdle, f.manager.RefreshState())

	after := f.storedPair(t)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)

	tok, err := f.manager.Token()
	require.NoError(t, err)
	require.Equal(t, after.AccessToken, tok.AccessToken)
}

func TestRefresh_ReplayThatAlso401sIsNotRefreshedAgain(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.srv.Handle("/always-401", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f.login(t, managerEmail, managerPassword)

	resp, err := f.manager.HTTPClient().Get(f.srv.URL() + "/always-401")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, 2, f.srv.Calls("/always-401"))
	require.Equal(t, 1, f.srv.Calls(authapi.PathRefresh))
	require.True(t, f.manager.IsAuthenticated())
}

func TestRefresh_FailureEndsSessionAndSurfacesRefreshError(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)

	f.srv.ExpireAccessTokens()
	f.srv.SetRejectRefresh(true)

	_, err := f.manager.API().Me(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, authapi.ErrRefreshRejected))
	require.False(t, errors.Is(err, authapi.ErrAuthRejected))

	require.False(t, f.manager.IsAuthenticated())
	require.Equal(t, session.StateFailed, f.manager.RefreshState())
	f.requireStoreEmpty(t)
	require.Equal(t, 1, f.srv.Calls(authapi.PathMe))

	f.waitIdle(t)
	require.Contains(t, f.publisher.types(), events.SessionExpired)
}

func TestRefresh_ConcurrentWaveExchangesOnce(t *testing.T) {
	const n = 8

	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)
	f.srv.ExpireAccessTokens()
	release := f.srv.HoldRefresh()
	defer release()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.manager.API().Me(context.Background())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool {
		return f.srv.Calls(authapi.PathMe) == n && f.srv.Calls(authapi.PathRefresh) == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.Equal(t, session.StateRefreshing, f.manager.RefreshState())

	release()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.srv.Calls(authapi.PathRefresh))
	require.Equal(t, 2*n, f.srv.Calls(authapi.PathMe))
	require.True(t, f.manager.IsAuthenticated())
}

func TestRefresh_LogoutDuringRefreshDoesNotResurrectSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)
	f.srv.ExpireAccessTokens()
	release := f.srv.HoldRefresh()
	defer release()

	errCh := make(chan error, 1)
	go func() {
		_, err := f.manager.API().Me(context.Background())
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return f.srv.Calls(authapi.PathRefresh) == 1
	}, 5*time.Second, 5*time.Millisecond)

	f.manager.Logout(context.Background())
	release()

	err := <-errCh
	require.True(t, errors.Is(err, authapi.ErrAuthRejected))
	require.True(t, errors.Is(err, apperrors.ErrSessionEnded))

	f.waitIdle(t)
	require.False(t, f.manager.IsAuthenticated())
	require.Equal(t, session.StateIdle, f.manager.RefreshState())
	require.Equal(t, session.StateIdle, f.manager.Snapshot().RefreshState)
	f.requireStoreEmpty(t)
}

func TestRefresh_AnonymousUnauthorizedPassesThrough(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.Nil(t, f.manager.RestoreSession(context.Background()))
	f.srv.HandleProtected("/notes", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	resp, err := f.manager.HTTPClient().Get(f.srv.URL() + "/notes")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, session.StateIdle, f.manager.RefreshState())
	require.Zero(t, f.srv.Calls(authapi.PathRefresh))
	f.waitIdle(t)
	require.Empty(t, f.publisher.types())
}

func TestRefresh_NewLoginDuringRefreshKeepsNewSession(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)
	f.srv.ExpireAccessTokens()
	release := f.srv.HoldRefresh()
	defer release()

	errCh := make(chan error, 1)
	go func() {
		_, err := f.manager.API().Me(context.Background())
		errCh <- err
	}()
	require.Eventually(t, func() bool {
		return f.srv.Calls(authapi.PathRefresh) == 1
	}, 5*time.Second, 5*time.Millisecond)

	admin := f.login(t, adminEmail, adminPassword)
	loginPair := f.storedPair(t)
	release()

	require.Error(t, <-errCh)
	f.waitIdle(t)

	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, admin.Email, f.manager.User().Email)
	require.Equal(t, loginPair, f.storedPair(t))
}

func TestRefresh_ReplaysRequestBodyAndRequestID(t *testing.T) {
	f := setupTestFixture(t, nil)

	var mu sync.Mutex
	var bodies, ids []string
	f.srv.HandleProtected("/notes", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		ids = append(ids, r.Header.Get(session.RequestIDHeader))
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}, users.ManagerRoles...)

	f.login(t, managerEmail, managerPassword)
	f.srv.ExpireAccessTokens()

	// A reader without GetBody forces the transport to buffer.
	body := io.NopCloser(strings.NewReader(`{"note":"quarterly goals"}`))
	req, err := http.NewRequest(http.MethodPost, f.srv.URL()+"/notes", body)
	require.NoError(t, err)
	resp, err := f.manager.HTTPClient().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, 2, f.srv.Calls("/notes"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{`{"note":"quarterly goals"}`}, bodies)
	require.Len(t, ids, 1)
	require.NotEmpty(t, ids[0])
}

func TestRestoreSession(t *testing.T) {
	t.Run("round trips tokens written by login", func(t *testing.T) {
		store := credentials.NewFileStore(filepath.Join(t.TempDir(), "credentials.yaml"))
		f := setupTestFixture(t, store)
		f.login(t, managerEmail, managerPassword)
		written := f.storedPair(t)

		// Fresh process: new manager over the same store.
		restored := f.newManager(t)
		require.True(t, restored.Loading())
		require.False(t, restored.IsAuthenticated())

		u := restored.RestoreSession(context.Background())
		require.NotNil(t, u)
		require.Equal(t, managerEmail, u.Email)
		require.False(t, restored.Loading())
		require.True(t, restored.IsAuthenticated())

		tok, err := restored.Token()
		require.NoError(t, err)
		require.Equal(t, written.AccessToken, tok.AccessToken)
		require.Equal(t, written.RefreshToken, tok.RefreshToken)
		require.Zero(t, f.srv.Calls(authapi.PathRefresh))
	})

	t.Run("empty store is not authenticated", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		require.True(t, f.manager.Loading())
		require.Nil(t, f.manager.RestoreSession(context.Background()))
		require.False(t, f.manager.Loading())
		require.False(t, f.manager.IsAuthenticated())
		require.Zero(t, f.srv.Calls(authapi.PathMe))
	})

	t.Run("rejected tokens are cleared", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		require.NoError(t, f.store.Save(context.Background(), credentials.TokenPair{AccessToken: "stale", RefreshToken: "revoked"}))

		require.Nil(t, f.manager.RestoreSession(context.Background()))
		require.False(t, f.manager.Loading())
		require.False(t, f.manager.IsAuthenticated())
		require.Empty(t, f.manager.Error())
		f.requireStoreEmpty(t)
		require.Equal(t, 1, f.srv.Calls(authapi.PathRefresh))
	})

	t.Run("expired access token is refreshed during restore", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		f.login(t, staffEmail, staffPassword)
		written := f.storedPair(t)
		f.srv.ExpireAccessTokens()

		restored := f.newManager(t)
		u := restored.RestoreSession(context.Background())
		require.NotNil(t, u)
		require.True(t, restored.IsAuthenticated())
		require.Equal(t, 1, f.srv.Calls(authapi.PathRefresh))
		require.NotEqual(t, written.RefreshToken, f.storedPair(t).RefreshToken)
	})

	t.Run("network failure degrades to logged out", func(t *testing.T) {
		f := setupTestFixture(t, nil)
		require.NoError(t, f.store.Save(context.Background(), credentials.TokenPair{AccessToken: "a", RefreshToken: "r"}))
		f.srv.SetStatus(authapi.PathMe, http.StatusServiceUnavailable)

		require.Nil(t, f.manager.RestoreSession(context.Background()))
		require.False(t, f.manager.IsAuthenticated())
		f.requireStoreEmpty(t)
	})
}

func TestRefreshUser(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)

	require.NoError(t, f.srv.UpdateUser(users.User{Email: managerEmail, FirstName: "Mia", LastName: "Manager", Role: users.RoleManager, JobTitle: "Director"}))

	u := f.manager.RefreshUser(context.Background())
	require.NotNil(t, u)
	require.Equal(t, "Director", u.JobTitle)
	require.Equal(t, "Director", f.manager.User().JobTitle)

	f.srv.SetStatus(authapi.PathMe, http.StatusInternalServerError)
	require.Nil(t, f.manager.RefreshUser(context.Background()))
	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, "Director", f.manager.User().JobTitle)
}

func TestRegister(t *testing.T) {
	f := setupTestFixture(t, nil)
	require.Nil(t, f.manager.RestoreSession(context.Background()))
	admin := f.login(t, adminEmail, adminPassword)

	req := authapi.RegisterRequest{Email: "new.hire@example.com", Password: "welcome1", FirstName: "New", LastName: "Hire", Department: "Sales"}
	u, err := f.manager.Register(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "new.hire@example.com", u.Email)
	require.Equal(t, admin, f.manager.User(), "register must not switch the session")

	_, err = f.manager.Register(context.Background(), req)
	require.True(t, errors.Is(err, authapi.ErrValidationFailure))
	require.Equal(t, "Email is already taken!", f.manager.Error())

	_, err = f.manager.Register(context.Background(), authapi.RegisterRequest{Email: "bad"})
	require.True(t, errors.Is(err, authapi.ErrValidationFailure))
	require.NotEmpty(t, f.manager.Error())
	require.False(t, f.manager.Loading())
}

func TestChangePassword(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, staffEmail, staffPassword)

	err := f.manager.ChangePassword(context.Background(), "wrong", "brandnew1")
	require.True(t, errors.Is(err, authapi.ErrValidationFailure))
	require.Equal(t, "Current password is incorrect", f.manager.Error())

	require.NoError(t, f.manager.ChangePassword(context.Background(), staffPassword, "brandnew1"))
	require.Empty(t, f.manager.Error())
	require.True(t, f.manager.IsAuthenticated())

	f.manager.Logout(context.Background())
	err = f.manager.ChangePassword(context.Background(), "brandnew1", "another1")
	require.True(t, errors.Is(err, authapi.ErrAuthRejected))
	require.Equal(t, "Full authentication is required to access this resource", f.manager.Error())

	f.srv.Close()
	err = f.manager.ChangePassword(context.Background(), "brandnew1", "another1")
	require.True(t, errors.Is(err, authapi.ErrNetworkFailure))
	require.Equal(t, session.MsgPasswordChangeFailed, f.manager.Error())
}

func TestSetAndClearError(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.manager.SetError("Please sign in")
	require.Equal(t, "Please sign in", f.manager.Snapshot().Error)
	f.manager.ClearError()
	require.Empty(t, f.manager.Error())
}

func TestAuthorizationFacade(t *testing.T) {
	f := setupTestFixture(t, nil)

	require.False(t, f.manager.HasRole(users.RoleAdmin))
	require.False(t, f.manager.HasAnyRole(users.ManagerRoles...))
	require.False(t, f.manager.IsAuthenticated())

	f.login(t, managerEmail, managerPassword)
	require.False(t, f.manager.HasRole(users.RoleAdmin))
	require.True(t, f.manager.HasRole(users.RoleManager))
	require.True(t, f.manager.HasAnyRole(users.RoleManager, users.RoleAdmin))

	f.login(t, adminEmail, adminPassword)
	require.True(t, f.manager.HasAnyRole(users.RoleManager, users.RoleAdmin))

	f.login(t, staffEmail, staffPassword)
	require.False(t, f.manager.HasAnyRole(users.RoleManager, users.RoleAdmin))
	require.False(t, f.manager.HasAnyRole())

	f.manager.Logout(context.Background())
	require.False(t, f.manager.HasRole(users.RoleEmployee))
}

func TestEventsPublished(t *testing.T) {
	f := setupTestFixture(t, nil)
	f.login(t, managerEmail, managerPassword)
	f.srv.ExpireAccessTokens()
	require.NotNil(t, f.manager.RefreshUser(context.Background()))
	f.manager.Logout(context.Background())
	f.waitIdle(t)

	require.ElementsMatch(t, []events.Type{events.UserLogin, events.TokenRefreshed, events.UserLogout}, f.publisher.types())
}

func TestSnapshotAndExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	srv := authtest.NewServer()
	t.Cleanup(srv.Close)
	_, err := srv.AddUser(users.User{Email: staffEmail, Role: users.RoleEmployee}, staffPassword)
	require.NoError(t, err)

	m, err := session.New(srv.URL(), credentials.NewMemoryStore(),
		session.WithHTTPClient(srv.Client()),
		session.WithLogger(zerolog.Nop()),
		session.WithNowTime(func() time.Time { return now }),
	)
	require.NoError(t, err)

	_, err = m.Login(context.Background(), staffEmail, staffPassword)
	require.NoError(t, err)

	snap := m.Snapshot()
	require.True(t, snap.Authenticated)
	require.Equal(t, now.Add(15*time.Minute), snap.Expiry)
	require.Equal(t, session.StateIdle, snap.RefreshState)
	require.Equal(t, "IDLE", snap.RefreshState.String())
	require.Equal(t, staffEmail, snap.User.Email)

	snap.User.Email = "changed@example.com"
	require.Equal(t, staffEmail, m.User().Email)
}
