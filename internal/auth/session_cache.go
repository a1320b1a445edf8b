package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/charlesng35/authcore/internal/cache"
	"github.com/charlesng35/authcore/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:refresh:"

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache holds active session rows keyed by token digest.
type SessionCache interface {
	Get(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Set(ctx context.Context, tokenHash string, token *models.RefreshToken, ttl time.Duration) error
	Delete(ctx context.Context, tokenHashes ...string) error
}

// NewSessionCache wraps a cache.Store (redis or database) as a SessionCache.
func NewSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &sessionStoreCache{store: store}
}

type sessionStoreCache struct {
	store cache.Store
}

func (c *sessionStoreCache) Get(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	if tokenHash == "" {
		return nil, errSessionCacheMiss
	}

	data, found, err := c.store.Get(ctx, sessionCacheKeyPrefix+tokenHash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}

	var token models.RefreshToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("session cache: decode: %w", err)
	}
	token.TokenHash = tokenHash
	return &token, nil
}

func (c *sessionStoreCache) Set(ctx context.Context, tokenHash string, token *models.RefreshToken, ttl time.Duration) error {
	if token == nil || tokenHash == "" {
		return errors.New("session cache: token and digest are required")
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("session cache: marshal: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.store.Set(ctx, sessionCacheKeyPrefix+tokenHash, payload, ttl)
}

func (c *sessionStoreCache) Delete(ctx context.Context, tokenHashes ...string) error {
	keys := make([]string, 0, len(tokenHashes))
	for _, hash := range tokenHashes {
		if hash != "" {
			keys = append(keys, sessionCacheKeyPrefix+hash)
		}
	}
	return c.store.Delete(ctx, keys...)
}
