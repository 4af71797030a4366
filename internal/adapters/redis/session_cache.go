package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

// cachedSession is the wire form of an enriched session. SessionUser marshals
// to a flattened view, so the cache keeps its own lossless shape.
type cachedSession struct {
	Token       string                 `json:"token"`
	Identity    domainauth.Identity    `json:"identity"`
	Record      *domainauth.RoleRecord `json:"record,omitempty"`
	AccessToken string                 `json:"accessToken,omitempty"`
	ExpiresAt   time.Time              `json:"expiresAt"`
}

// SessionCache stores enriched sessions so repeat requests skip the role directory.
type SessionCache struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionCache creates a Redis-backed session cache.
func NewSessionCache(client redis.UniversalClient) *SessionCache {
	return &SessionCache{client: client, prefix: "session_cache:"}
}

// NewSessionCacheWithPrefix creates a session cache with a custom key prefix.
func NewSessionCacheWithPrefix(client redis.UniversalClient, prefix string) *SessionCache {
	return &SessionCache{client: client, prefix: prefix}
}

func (c *SessionCache) Get(ctx context.Context, token string) (*domainauth.Session, bool, error) {
	if token == "" {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.prefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var cs cachedSession
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached session: %w", err)
	}
	if !cs.ExpiresAt.IsZero() && !time.Now().Before(cs.ExpiresAt) {
		return nil, false, nil
	}

	return &domainauth.Session{
		Token:       cs.Token,
		User:        domainauth.SessionUser{Identity: cs.Identity, Record: cs.Record},
		AccessToken: cs.AccessToken,
		ExpiresAt:   cs.ExpiresAt,
	}, true, nil
}

// Set stores sess for ttl. A non-positive ttl is a no-op.
func (c *SessionCache) Set(ctx context.Context, sess domainauth.Session, ttl time.Duration) error {
	if sess.Token == "" {
		return errors.New("session token cannot be empty")
	}
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(cachedSession{
		Token:       sess.Token,
		Identity:    sess.User.Identity,
		Record:      sess.User.Record,
		AccessToken: sess.AccessToken,
		ExpiresAt:   sess.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal cached session: %w", err)
	}
	return c.client.Set(ctx, c.prefix+sess.Token, data, ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.client.Del(ctx, c.prefix+token).Err()
}
