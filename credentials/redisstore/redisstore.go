// Package redisstore persists the session token pair in Redis, for headless clients
// that share one session across processes or hosts.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces the two entries.
const DefaultKeyPrefix = "session:"

// Client is the subset of the go-redis client used by the store.
type Client interface {
	MSet(ctx context.Context, values ...interface{}) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ credentials.Store = (*Store)(nil)

type Store struct {
	client Client
	prefix string
}

// New wraps an existing client. An empty prefix uses DefaultKeyPrefix.
func New(client Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Connect dials Redis, retrying the ping up to maxAttempts times.
func Connect(ctx context.Context, addr, password string, db, maxAttempts int) (*redis.Client, error) {
	var client *redis.Client
	err := doWithTries(func() error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close() //nolint:errcheck // retrying with a fresh client
			return err
		}
		return nil
	}, maxAttempts, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxAttempts, err)
	}
	return client, nil
}

func doWithTries(fn func() error, attempts int, delay time.Duration) (err error) {
	for attempts > 0 {
		if err = fn(); err == nil {
			return nil
		}
		attempts--
		if attempts > 0 {
			time.Sleep(delay)
		}
	}
	return err
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

// Save writes both entries with one MSET so a reader never sees a half-rotated pair.
func (s *Store) Save(ctx context.Context, pair credentials.TokenPair) error {
	err := s.client.MSet(ctx,
		s.key(credentials.AccessTokenKey), pair.AccessToken,
		s.key(credentials.RefreshTokenKey), pair.RefreshToken,
	).Err()
	if err != nil {
		return fmt.Errorf("[redisstore.Save] mset: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*credentials.TokenPair, error) {
	entries := make(map[string]string, 2)
	for _, name := range []string{credentials.AccessTokenKey, credentials.RefreshTokenKey} {
		value, err := s.client.Get(ctx, s.key(name)).Result()
		if errors.Is(err, redis.Nil) {
			return nil, credentials.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("[redisstore.Load] get %s: %w", name, err)
		}
		entries[name] = value
	}
	return credentials.FromEntries(entries)
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(credentials.AccessTokenKey), s.key(credentials.RefreshTokenKey)).Err(); err != nil {
		return fmt.Errorf("[redisstore.Clear] del: %w", err)
	}
	return nil
}
