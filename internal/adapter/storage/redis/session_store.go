package redis

import (
	"context"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// SessionStore implements ports.SessionStore. Sessions expire ttl after
// they are opened.
type SessionStore struct {
	store jsonStore[domain.Session]
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{store: jsonStore[domain.Session]{client: client, prefix: "session:", ttl: ttl}}
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	return s.store.create(ctx, session.ID.String(), session)
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.store.get(ctx, id.String())
}

func (s *SessionStore) Update(ctx context.Context, session *domain.Session) error {
	return s.store.update(ctx, session.ID.String(), session)
}
