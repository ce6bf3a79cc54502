package credentials

import (
	"context"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the entries in process memory. It survives nothing, which makes it
// the default for tests and short-lived tools.
type MemoryStore struct {
	entries map[string]string
	lock    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Save(_ context.Context, pair TokenPair) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entries[AccessTokenKey] = pair.AccessToken
	s.entries[RefreshTokenKey] = pair.RefreshToken
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (*TokenPair, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return FromEntries(s.entries)
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.entries, AccessTokenKey)
	delete(s.entries, RefreshTokenKey)
	return nil
}

// Entries returns a copy of the raw entries.
func (s *MemoryStore) Entries() map[string]string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	out := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}
