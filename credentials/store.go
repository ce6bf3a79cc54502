package credentials

import (
	"context"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Fixed keys the two token entries are persisted under.
const (
	AccessTokenKey  = "accessToken"
	RefreshTokenKey = "refreshToken"
)

// ErrNotFound is returned by Load when either token entry is absent.
var ErrNotFound = apperrors.ErrNotFound

// TokenPair holds the opaque bearer credentials issued by the auth service.
// The client never parses either token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Complete reports whether both tokens are present. A partial pair counts as no session.
func (p TokenPair) Complete() bool {
	return strings.TrimSpace(p.AccessToken) != "" && strings.TrimSpace(p.RefreshToken) != ""
}

// Store persists the token pair across process restarts.
// Implementations are plain key-value passthroughs: no validation of token content, no queuing.
type Store interface {
	// Save overwrites both entries
	Save(ctx context.Context, pair TokenPair) error

	// Load returns the stored pair or ErrNotFound when either entry is missing
	Load(ctx context.Context) (*TokenPair, error)

	// Clear removes both entries. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// FromEntries builds a pair from raw key-value entries, treating a missing or empty entry as absent.
func FromEntries(entries map[string]string) (*TokenPair, error) {
	pair := TokenPair{
		AccessToken:  entries[AccessTokenKey],
		RefreshToken: entries[RefreshTokenKey],
	}
	if !pair.Complete() {
		return nil, ErrNotFound
	}
	return &pair, nil
}
