package redis

import (
	"context"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// TokenStore implements ports.TokenStore. Each session has one slot,
// named after domain.TokenStorageKey; a new Put overwrites it.
type TokenStore struct {
	store jsonStore[domain.EncryptedPayload]
}

func NewTokenStore(client *goredis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{store: jsonStore[domain.EncryptedPayload]{
		client: client,
		prefix: domain.TokenStorageKey + ":",
		ttl:    ttl,
	}}
}

func (s *TokenStore) Put(ctx context.Context, sessionID uuid.UUID, payload *domain.EncryptedPayload) error {
	return s.store.set(ctx, sessionID.String(), payload)
}

func (s *TokenStore) Get(ctx context.Context, sessionID uuid.UUID) (*domain.EncryptedPayload, error) {
	return s.store.get(ctx, sessionID.String())
}
