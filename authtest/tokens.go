package authtest

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
)

// storedRefreshToken is the server-side record behind an opaque refresh token.
type storedRefreshToken struct {
	Token  string
	UserID int64
	Iat    time.Time
}

// accessClaims are the claims the fake server reads back from its own access tokens.
type accessClaims struct {
	UserID     int64
	Generation int64
}

// issueAccessToken signs an HS256 access token for u tied to the current generation. Caller holds s.mu.
func (s *Server) issueAccessToken(u *users.User) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"iss":   issuer,
		"sub":   strconv.FormatInt(u.ID, 10),
		"email": u.Email,
		"role":  string(u.Role),
		"gen":   s.generation,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

// parseAccessToken verifies signature, expiry and generation.
func (s *Server) parseAccessToken(raw string) (*accessClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid access token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return nil, errors.Wrap(err, "missing subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "bad subject")
	}
	gen, _ := claims["gen"].(float64)

	s.mu.Lock()
	current := s.generation
	s.mu.Unlock()
	if int64(gen) < current {
		return nil, errors.New("access token expired")
	}
	return &accessClaims{UserID: userID, Generation: int64(gen)}, nil
}

// createRefreshToken stores and returns a new opaque refresh token. Caller holds s.mu.
func (s *Server) createRefreshToken(userID int64) string {
	rt := &storedRefreshToken{Token: uuid.NewString(), UserID: userID, Iat: s.nowFunc()}
	s.refreshTokens[rt.Token] = rt
	return rt.Token
}

// rotateRefreshToken consumes token and issues a replacement. Caller holds s.mu.
func (s *Server) rotateRefreshToken(token string) (*storedRefreshToken, string, error) {
	rt, ok := s.refreshTokens[token]
	if !ok {
		return nil, "", errors.New("unknown refresh token")
	}
	delete(s.refreshTokens, token)
	if s.refreshTTL > 0 && s.nowFunc().Sub(rt.Iat) > s.refreshTTL {
		return nil, "", errors.New("refresh token expired")
	}
	return rt, s.createRefreshToken(rt.UserID), nil
}

// revokeRefreshTokens drops every refresh token held by userID. Caller holds s.mu.
func (s *Server) revokeRefreshTokens(userID int64) {
	for token, rt := range s.refreshTokens {
		if rt.UserID == userID {
			delete(s.refreshTokens, token)
		}
	}
}
