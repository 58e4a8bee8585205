package redis_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"goldpayments/internal/adapter/storage/redis"
	"goldpayments/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore(t *testing.T) {
	mr, client := newTestClient(t)
	store := redis.NewSessionStore(client, time.Hour)
	ctx := context.Background()

	s := &domain.Session{ID: uuid.New(), State: domain.SessionStateLocked, CreatedAt: time.Now().UTC()}

	t.Run("missing session is nil", func(t *testing.T) {
		got, err := store.Get(ctx, s.ID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update before create fails", func(t *testing.T) {
		assert.Error(t, store.Update(ctx, s))
	})

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, s))
		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.SessionStateLocked, got.State)
		assert.Nil(t, got.UnlockedAt)
		assert.Equal(t, time.Hour, mr.TTL("session:"+s.ID.String()))
	})

	t.Run("create twice fails", func(t *testing.T) {
		assert.Error(t, store.Create(ctx, s))
	})

	t.Run("update keeps ttl", func(t *testing.T) {
		mr.FastForward(10 * time.Minute)
		s.Unlock(time.Now().UTC())
		require.NoError(t, store.Update(ctx, s))

		got, err := store.Get(ctx, s.ID)
		require.NoError(t, err)
		assert.True(t, got.IsUnlocked())
		require.NotNil(t, got.UnlockedAt)
		assert.Equal(t, 50*time.Minute, mr.TTL("session:"+s.ID.String()))
	})

	t.Run("expires", func(t *testing.T) {
		mr.FastForward(time.Hour)
		got, err := store.Get(ctx, s.ID)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestFlowStore(t *testing.T) {
	_, client := newTestClient(t)
	store := redis.NewFlowStore(client, time.Hour)
	ctx := context.Background()

	now := time.Now().UTC()
	f := &domain.LinkFlow{ID: uuid.New(), SessionID: uuid.New(), Step: domain.LinkStepIntro, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Create(ctx, f))

	f.MoveTo(domain.LinkStepInstitution, now.Add(time.Second))
	f.Institution = "BBVA"
	moved, err := store.Transition(ctx, f, domain.LinkStepIntro)
	require.NoError(t, err)
	assert.True(t, moved)

	got, err := store.Get(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.LinkStepInstitution, got.Step)
	assert.Equal(t, "BBVA", got.Institution)
	assert.Equal(t, f.SessionID, got.SessionID)
}

func TestFlowStore_Transition(t *testing.T) {
	mr, client := newTestClient(t)
	store := redis.NewFlowStore(client, time.Hour)
	ctx := context.Background()

	now := time.Now().UTC()
	f := &domain.LinkFlow{ID: uuid.New(), SessionID: uuid.New(), Step: domain.LinkStepConfirmation, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Create(ctx, f))
	mr.FastForward(15 * time.Minute)

	cancelled := *f
	cancelled.MoveTo(domain.LinkStepCancelled, now)
	moved, err := store.Transition(ctx, &cancelled, domain.LinkStepConfirmation)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, 45*time.Minute, mr.TTL("linkflow:"+f.ID.String()), "ttl is kept")

	t.Run("stale from step is refused", func(t *testing.T) {
		completed := *f
		completed.MoveTo(domain.LinkStepCompleted, now)
		moved, err := store.Transition(ctx, &completed, domain.LinkStepConfirmation)
		require.NoError(t, err)
		assert.False(t, moved)

		got, err := store.Get(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.LinkStepCancelled, got.Step)
	})

	t.Run("missing run is refused", func(t *testing.T) {
		other := &domain.LinkFlow{ID: uuid.New(), Step: domain.LinkStepInstitution}
		moved, err := store.Transition(ctx, other, domain.LinkStepIntro)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.False(t, mr.Exists("linkflow:"+other.ID.String()))
	})

	t.Run("concurrent movers, one winner", func(t *testing.T) {
		g := &domain.LinkFlow{ID: uuid.New(), SessionID: uuid.New(), Step: domain.LinkStepIntro}
		require.NoError(t, store.Create(ctx, g))

		const movers = 10
		wins := make(chan bool, movers)
		var wg sync.WaitGroup
		for i := 0; i < movers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := *g
				next.MoveTo(domain.LinkStepInstitution, time.Now().UTC())
				moved, err := store.Transition(ctx, &next, domain.LinkStepIntro)
				assert.NoError(t, err)
				wins <- moved
			}()
		}
		wg.Wait()
		close(wins)

		won := 0
		for w := range wins {
			if w {
				won++
			}
		}
		assert.Equal(t, 1, won)
	})
}

func TestTokenStore(t *testing.T) {
	mr, client := newTestClient(t)
	store := redis.NewTokenStore(client, time.Hour)
	ctx := context.Background()
	sessionID := uuid.New()

	got, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Nil(t, got)

	first := &domain.EncryptedPayload{Ciphertext: "Y2lwaGVy", Nonce: "bm9uY2U="}
	require.NoError(t, store.Put(ctx, sessionID, first))

	raw, err := mr.Get(domain.TokenStorageKey + ":" + sessionID.String())
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, map[string]string{"encrypted": "Y2lwaGVy", "iv": "bm9uY2U="}, stored)

	second := &domain.EncryptedPayload{Ciphertext: "bmV3", Nonce: "aXY="}
	require.NoError(t, store.Put(ctx, sessionID, second))

	got, err = store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, second, got, "the slot is overwritten")
}

func TestHealthCheck(t *testing.T) {
	mr, client := newTestClient(t)
	hc := redis.NewHealthCheck(client)

	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))

	mr.Close()
	assert.Error(t, hc.Ping(context.Background()))
}
