package auth

import (
	"context"
	"time"

	"ordermgr/internal/cache"
)

const revokedSessionKeyPrefix = "revoked_session:"

// TokenStoreInterface defines the interface for session revocation storage.
type TokenStoreInterface interface {
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)
}

// TokenStore keeps a deny-list of signed-out session ids in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

// RevokeSession deny-lists a session id until its token would have expired anyway.
func (s *TokenStore) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, revokedSessionKeyPrefix+sessionID, []byte("1"), ttl)
}

// IsSessionRevoked checks whether a session id was signed out.
func (s *TokenStore) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	data, err := s.cache.Get(ctx, revokedSessionKeyPrefix+sessionID)
	if err != nil {
		return false, nil // Not revoked if error (fail safe)
	}
	return data != nil, nil
}
