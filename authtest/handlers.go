package authtest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/users"
	"golang.org/x/crypto/bcrypt"
)

func (s *Server) routes() {
	public := func(h http.HandlerFunc) http.HandlerFunc {
		return ChainMiddleware(h, s.recordCall, s.LoggingMiddleware)
	}
	authed := func(h http.HandlerFunc, roles ...users.Role) http.HandlerFunc {
		return ChainMiddleware(h, s.recordCall, s.LoggingMiddleware, s.RequireAuth(), s.RequireRole(roles...))
	}

	s.mux.HandleFunc("POST "+APIPrefix+authapi.PathLogin, public(s.handleLogin))
	s.mux.HandleFunc("POST "+APIPrefix+authapi.PathRefresh, public(s.handleRefresh))
	s.mux.HandleFunc("POST "+APIPrefix+authapi.PathLogout, public(s.handleLogout))
	s.mux.HandleFunc("GET "+APIPrefix+authapi.PathHealth, public(s.handleHealth))
	s.mux.HandleFunc("GET "+APIPrefix+authapi.PathMe, authed(s.handleMe))
	s.mux.HandleFunc("PUT "+APIPrefix+authapi.PathChangePassword, authed(s.handleChangePassword))
	s.mux.HandleFunc("POST "+APIPrefix+authapi.PathRegister, authed(s.handleRegister, users.RoleAdmin))
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(authapi.Envelope[any]{
		Success: status >= 200 && status < 300,
		Message: message,
		Data:    data,
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Malformed request body", nil)
		return false
	}
	return true
}

func (s *Server) userByID(id int64) *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			return acc.user.Clone()
		}
	}
	return nil
}

// issuePair creates a full token response for u. Caller holds s.mu.
func (s *Server) issuePair(u *users.User) (*authapi.TokenResponse, error) {
	access, err := s.issueAccessToken(u)
	if err != nil {
		return nil, err
	}
	return &authapi.TokenResponse{
		AccessToken:  access,
		RefreshToken: s.createRefreshToken(u.ID),
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
		User:         u.Clone(),
	}, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authapi.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Email]
	var hash string
	var u *users.User
	if ok {
		hash, u = acc.passwordHash, acc.user.Clone()
	}
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeEnvelope(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}
	if !u.Active() {
		writeEnvelope(w, http.StatusUnauthorized, "Account is disabled", nil)
		return
	}

	s.mu.Lock()
	tr, err := s.issuePair(u)
	s.mu.Unlock()
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "Login successful", tr)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authapi.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	delay, gate, reject := s.refreshDelay, s.refreshGate, s.rejectRefresh
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	if reject {
		writeEnvelope(w, http.StatusUnauthorized, "Invalid refresh token", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rt, newRefresh, err := s.rotateRefreshToken(req.RefreshToken)
	if err != nil {
		writeEnvelope(w, http.StatusUnauthorized, "Invalid refresh token", nil)
		return
	}

	var u *users.User
	for _, acc := range s.accounts {
		if acc.user.ID == rt.UserID {
			u = acc.user.Clone()
		}
	}
	if u == nil {
		delete(s.refreshTokens, newRefresh)
		writeEnvelope(w, http.StatusUnauthorized, "User not found", nil)
		return
	}

	access, err := s.issueAccessToken(u)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "Token refreshed successfully", authapi.TokenResponse{
		AccessToken:  access,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL / time.Second),
		User:         u,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, _ := bearerToken(r)

	s.mu.Lock()
	s.logoutBearers = append(s.logoutBearers, token)
	fail := s.failLogout
	s.mu.Unlock()

	if fail {
		writeEnvelope(w, http.StatusInternalServerError, "Logout failed", nil)
		return
	}
	if token != "" {
		if claims, err := s.parseAccessToken(token); err == nil {
			s.mu.Lock()
			s.revokeRefreshTokens(claims.UserID)
			s.mu.Unlock()
		}
	}
	writeEnvelope(w, http.StatusOK, "Logout successful", nil)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, "Auth service is running", nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusOK, "", UserFromContext(r.Context()))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authapi.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := authapi.Validate(req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, authapi.MessageOf(err, "Invalid request"), nil)
		return
	}

	u := UserFromContext(r.Context())
	s.mu.Lock()
	acc, ok := s.accounts[u.Email]
	var current string
	if ok {
		current = acc.passwordHash
	}
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword([]byte(current), []byte(req.CurrentPassword)) != nil {
		writeEnvelope(w, http.StatusBadRequest, "Current password is incorrect", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	s.mu.Lock()
	acc.passwordHash = string(hash)
	s.mu.Unlock()
	writeEnvelope(w, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authapi.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	if err := authapi.Validate(req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, authapi.MessageOf(err, "Invalid request"), nil)
		return
	}

	u, err := s.AddUser(users.User{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		EmployeeID: req.EmployeeID,
		JobTitle:   req.JobTitle,
		Department: req.Department,
		ManagerID:  req.ManagerID,
		Role:       users.RoleEmployee,
	}, req.Password)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, "Email is already taken!", nil)
		return
	}
	writeEnvelope(w, http.StatusCreated, "User registered successfully", u)
}
