package authtest

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/users"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the authenticated *users.User
const ContextKeyUser ContextKey = "user"

// UserFromContext returns the user injected by RequireAuth.
func UserFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(ContextKeyUser).(*users.User)
	return u
}

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Str("request_id", r.Header.Get("X-Request-ID")).Msg("authtest request")
		next(w, r)
	}
}

// recordCall counts the request and applies any status forced with SetStatus.
func (s *Server) recordCall(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, APIPrefix)

		s.mu.Lock()
		s.calls[path]++
		status := s.overrides[path]
		s.mu.Unlock()

		if status != 0 {
			writeEnvelope(w, status, http.StatusText(status), nil)
			return
		}
		next(w, r)
	}
}

// RequireAuth is middleware that validates a Bearer access token and injects the user
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeEnvelope(w, http.StatusUnauthorized, "Full authentication is required to access this resource", nil)
				return
			}

			claims, err := s.parseAccessToken(token)
			if err != nil {
				writeEnvelope(w, http.StatusUnauthorized, "Invalid or expired token", nil)
				return
			}

			u := s.userByID(claims.UserID)
			if u == nil || !u.Active() {
				writeEnvelope(w, http.StatusUnauthorized, "User not found or inactive", nil)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyUser, u)))
		}
	}
}

// RequireRole is middleware that checks the authenticated user's role. Chain it after RequireAuth.
func (s *Server) RequireRole(roles ...users.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if len(roles) > 0 && !UserFromContext(r.Context()).HasAnyRole(roles...) {
				writeEnvelope(w, http.StatusForbidden, "Access denied", nil)
				return
			}
			next(w, r)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
