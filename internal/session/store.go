package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// TokenPrefix is the Redis key prefix for all token hashes.
	TokenPrefix = "anontoken:"

	// TokenTTL is the sliding time-to-live for tokens. A token unused for
	// this long expires; Validate refreshes it.
	TokenTTL = 30 * 24 * time.Hour
)

// Token is a stable anonymous identity token stored in Redis.
type Token struct {
	Value       string `redis:"value"`
	Fingerprint string `redis:"fingerprint"` // composite fingerprint at issue time
	IPHash      string `redis:"ip_hash"`     // hashed issue-time IP, for evasion review
	CreatedAt   int64  `redis:"created_at"`  // unix timestamp
	LastSeen    int64  `redis:"last_seen"`   // unix timestamp
}

// Store manages anonymous tokens in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new token store connected to Redis.
func NewStore(redisAddr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Verify connection.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: redis connection failed: %w", err)
	}

	return &Store{client: client}, nil
}

// Issue creates a new stable token bound to the caller's fingerprint and
// returns its value. Two UUIDs are concatenated so tokens are long enough
// to pass the resolver's validity floor and impractical to guess.
func (s *Store) Issue(ctx context.Context, fingerprint, ipHash string) (string, error) {
	value := uuid.New().String() + uuid.New().String()
	key := TokenPrefix + value
	now := time.Now().Unix()

	token := map[string]interface{}{
		"value":       value,
		"fingerprint": fingerprint,
		"ip_hash":     ipHash,
		"created_at":  now,
		"last_seen":   now,
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, token)
	pipe.Expire(ctx, key, TokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("session: issue token: %w", err)
	}
	return value, nil
}

// Validate checks a token and refreshes its TTL on success. Returns nil
// for unknown or expired tokens.
func (s *Store) Validate(ctx context.Context, value string) (*Token, error) {
	key := TokenPrefix + value
	var token Token
	if err := s.client.HGetAll(ctx, key).Scan(&token); err != nil {
		return nil, fmt.Errorf("session: validate token: %w", err)
	}
	if token.Value == "" {
		return nil, nil // not found
	}

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, "last_seen", time.Now().Unix())
	pipe.Expire(ctx, key, TokenTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("session: refresh token: %w", err)
	}
	return &token, nil
}

// Revoke removes a token.
func (s *Store) Revoke(ctx context.Context, value string) error {
	return s.client.Del(ctx, TokenPrefix+value).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Client returns the underlying Redis client for use by other packages.
func (s *Store) Client() *redis.Client {
	return s.client
}
