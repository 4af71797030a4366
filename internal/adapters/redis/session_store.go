package redis

// Package redis provides Redis-based adapters for the portal's auth tokens and session cache.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	apperrors "github.com/fakehospital/portal/internal/errors"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-based auth token store.
// Key TTL follows the token's ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based token store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: "auth_token:",
	}
}

// NewSessionStoreWithPrefix creates a Redis token store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{
		client: client,
		prefix: prefix,
	}
}

func (s *SessionStore) Save(ctx context.Context, tok domainauth.AuthToken) error {
	if tok.Token == "" {
		return errors.New("auth token cannot be empty")
	}
	if tok.IdentityID == "" {
		return errors.New("auth token has no identity")
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal auth token: %w", err)
	}

	ttl := time.Until(tok.ExpiresAt)
	if ttl <= 0 {
		return errors.New("auth token is expired")
	}

	return s.client.Set(ctx, s.prefix+tok.Token, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, token string) (domainauth.AuthToken, error) {
	if token == "" {
		return domainauth.AuthToken{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.AuthToken{}, ErrNotFound
		}
		return domainauth.AuthToken{}, fmt.Errorf("redis get: %w", err)
	}

	var tok domainauth.AuthToken
	if unmarshalErr := json.Unmarshal([]byte(data), &tok); unmarshalErr != nil {
		return domainauth.AuthToken{}, fmt.Errorf("unmarshal auth token: %w", unmarshalErr)
	}

	if tok.Expired(time.Now()) {
		if deleteErr := s.Delete(ctx, token); deleteErr != nil {
			return domainauth.AuthToken{}, fmt.Errorf("cleanup expired token: %w", deleteErr)
		}
		return domainauth.AuthToken{}, ErrNotFound
	}

	return tok, nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+token).Err()
}

// ErrNotFound is returned when a token is unknown or expired.
var ErrNotFound error = apperrors.NotFound("auth token not found")
