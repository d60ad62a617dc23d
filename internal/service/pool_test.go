package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquireRespectsCapacity(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", 2)
	id := pool.ID.Hex()

	require.NoError(t, pools.TryAcquire(id, "u1", "c1"))
	require.NoError(t, pools.TryAcquire(id, "u2", "c2"))

	err := pools.TryAcquire(id, "u3", "c3")
	require.Error(t, err)
	assert.Equal(t, cErr.POOL_EXHAUSTED, cErr.From(err).ErrorCode())

	snapshot, err := pools.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.CurrentClients)
}

func TestTryAcquireConcurrentNeverExceedsCapacity(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", 5)
	id := pool.ID.Hex()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := pools.TryAcquire(id, "user", fmt.Sprintf("client-%d", n)); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	snapshot, err := pools.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 5, snapshot.CurrentClients)
}

func TestUnboundedPoolAlwaysAdmits(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", model.UnboundedClients)
	id := pool.ID.Hex()

	for i := 0; i < 100; i++ {
		require.NoError(t, pools.TryAcquire(id, "user", fmt.Sprintf("client-%d", i)))
	}
	snapshot, err := pools.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 100, snapshot.CurrentClients)
}

func TestReleaseIsIdempotent(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", 1)
	id := pool.ID.Hex()

	// 釋放不存在的佔用不是錯誤，也不能讓計數變負
	pools.Release(id, "ghost")
	require.NoError(t, pools.TryAcquire(id, "u1", "c1"))
	pools.Release(id, "c1")
	pools.Release(id, "c1")

	snapshot, err := pools.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.CurrentClients)

	// 釋放後容量立刻可回收
	require.NoError(t, pools.TryAcquire(id, "u2", "c2"))
}

func TestInactivePoolRejectsAcquire(t *testing.T) {
	pools := newTestPoolService(t)
	inactive := false
	pool, err := pools.CreatePool(context.Background(), "openai", &dto.CreateKeyPoolDto{
		ProviderName: "openai",
		Name:         "pool-a",
		APIKey:       "sk-a",
		MaxClients:   10,
		Active:       &inactive,
	})
	require.NoError(t, err)

	acquireErr := pools.TryAcquire(pool.ID.Hex(), "u1", "c1")
	require.Error(t, acquireErr)
	assert.Equal(t, cErr.POOL_EXHAUSTED, cErr.From(acquireErr).ErrorCode())
}

func TestUpdatePoolShrinkDoesNotEvict(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", 3)
	id := pool.ID.Hex()

	require.NoError(t, pools.TryAcquire(id, "u1", "c1"))
	require.NoError(t, pools.TryAcquire(id, "u2", "c2"))

	one := 1
	updated, err := pools.UpdatePool(context.Background(), id, &dto.UpdateKeyPoolDto{MaxClients: &one})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.MaxClients)
	// 既有佔用者不受影響，只是不再受理新 acquire
	assert.Equal(t, 2, updated.CurrentClients)

	err = pools.TryAcquire(id, "u3", "c3")
	require.Error(t, err)

	pools.Release(id, "c1")
	// 仍然 1/1，還是滿的
	require.Error(t, pools.TryAcquire(id, "u3", "c3"))

	pools.Release(id, "c2")
	require.NoError(t, pools.TryAcquire(id, "u3", "c3"))
}

func TestListPoolsForProviderLeastLoadedFirst(t *testing.T) {
	pools := newTestPoolService(t)
	a := seedPool(t, pools, "openai", "pool-a", 10)
	b := seedPool(t, pools, "openai", "pool-b", 10)
	seedPool(t, pools, "anthropic", "pool-x", 10)

	require.NoError(t, pools.TryAcquire(a.ID.Hex(), "u1", "c1"))
	require.NoError(t, pools.TryAcquire(a.ID.Hex(), "u2", "c2"))
	require.NoError(t, pools.TryAcquire(b.ID.Hex(), "u3", "c3"))

	ranked := pools.ListPoolsForProvider("openai")
	require.Len(t, ranked, 2)
	assert.Equal(t, "pool-b", ranked[0].Name)
	assert.Equal(t, "pool-a", ranked[1].Name)
}

func TestPoolHealthStatusListsOccupants(t *testing.T) {
	pools := newTestPoolService(t)
	pool := seedPool(t, pools, "openai", "pool-a", 5)
	id := pool.ID.Hex()

	require.NoError(t, pools.TryAcquire(id, "u1", "ide-2"))
	require.NoError(t, pools.TryAcquire(id, "u2", "ide-1"))

	health, err := pools.HealthStatus(id)
	require.NoError(t, err)
	assert.Equal(t, 2, health.CurrentClients)
	assert.Equal(t, []string{"ide-1", "ide-2"}, health.ClientIDs)
}

func TestUnknownPoolIsNotFound(t *testing.T) {
	pools := newTestPoolService(t)
	err := pools.TryAcquire("0123456789abcdef01234567", "u1", "c1")
	require.Error(t, err)
	assert.Equal(t, cErr.NOT_FOUND, cErr.From(err).ErrorCode())
}
