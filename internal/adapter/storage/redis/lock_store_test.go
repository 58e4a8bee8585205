package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"goldpayments/internal/adapter/storage/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockStore_AcquireRelease(t *testing.T) {
	mr, client := newTestClient(t)
	locks := redis.NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, "scan:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:scan:abc"))

	ok, err = locks.Acquire(ctx, "scan:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held key cannot be acquired twice")

	require.NoError(t, locks.Release(ctx, "scan:abc"))
	assert.False(t, mr.Exists("lock:scan:abc"))

	ok, err = locks.Acquire(ctx, "scan:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStore_Expires(t *testing.T) {
	mr, client := newTestClient(t)
	locks := redis.NewLockStore(client)
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, "finalize:f1", 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	ok, err = locks.Acquire(ctx, "finalize:f1", 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStore_OneWinnerUnderContention(t *testing.T) {
	_, client := newTestClient(t)
	locks := redis.NewLockStore(client)
	ctx := context.Background()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := locks.Acquire(ctx, "finalize:race", time.Minute)
			assert.NoError(t, err)
			if ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestLockStore_ReleaseMissingKey(t *testing.T) {
	_, client := newTestClient(t)
	locks := redis.NewLockStore(client)

	assert.NoError(t, locks.Release(context.Background(), "never-held"))
}
