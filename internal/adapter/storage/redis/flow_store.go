package redis

import (
	"context"
	"time"

	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// FlowStore implements ports.FlowStore.
type FlowStore struct {
	store jsonStore[domain.LinkFlow]
}

func NewFlowStore(client *goredis.Client, ttl time.Duration) *FlowStore {
	return &FlowStore{store: jsonStore[domain.LinkFlow]{client: client, prefix: "linkflow:", ttl: ttl}}
}

func (s *FlowStore) Create(ctx context.Context, flow *domain.LinkFlow) error {
	return s.store.create(ctx, flow.ID.String(), flow)
}

func (s *FlowStore) Get(ctx context.Context, id uuid.UUID) (*domain.LinkFlow, error) {
	return s.store.get(ctx, id.String())
}

// Transition stores flow only if the stored run is still at from.
func (s *FlowStore) Transition(ctx context.Context, flow *domain.LinkFlow, from domain.LinkStep) (bool, error) {
	return s.store.swap(ctx, flow.ID.String(), flow, func(cur *domain.LinkFlow) bool {
		return cur.Step == from
	})
}
