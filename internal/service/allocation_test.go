package service

import (
	"context"
	"testing"

	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAllocStack(t *testing.T) (*ProviderService, *PoolService, *QuotaService, *AllocationService) {
	t.Helper()
	trace := testTrace(t)
	logger := zap.NewNop()
	metric := telemetry.NewMetric(nil)
	providers := NewProviderServiceWithStore(trace, logger, nil)
	pools := NewPoolServiceWithStore(trace, logger, metric, nil)
	quota := NewQuotaServiceWithStore(trace, logger, testConf(), nil)
	alloc := NewAllocationServiceWithStore(trace, logger, metric, providers, pools, quota, nil, nil)
	return providers, pools, quota, alloc
}

func TestAllocatePrefersLowestPriorityProvider(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "fallback", 1)
	seedProvider(t, providers, "primary", 0)
	seedPool(t, pools, "fallback", "fb-1", 10)
	seedPool(t, pools, "primary", "pr-1", 10)

	grant, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "primary", grant.Provider)
	assert.Equal(t, "https://primary.example.com", grant.BaseURL)
	assert.Equal(t, "sk-pr-1", grant.APIKey)
}

func TestAllocatePicksLeastLoadedPool(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	busy := seedPool(t, pools, "openai", "busy", 10)
	idle := seedPool(t, pools, "openai", "idle", 10)

	require.NoError(t, pools.TryAcquire(busy.ID.Hex(), "x1", "k1"))
	require.NoError(t, pools.TryAcquire(busy.ID.Hex(), "x2", "k2"))
	require.NoError(t, pools.TryAcquire(idle.ID.Hex(), "x3", "k3"))

	grant, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.NoError(t, err)
	assert.Equal(t, idle.ID.Hex(), grant.PoolID)
}

func TestAllocateFallsThroughFullProvider(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "primary", 0)
	seedProvider(t, providers, "fallback", 1)
	full := seedPool(t, pools, "primary", "pr-1", 1)
	seedPool(t, pools, "fallback", "fb-1", 1)

	require.NoError(t, pools.TryAcquire(full.ID.Hex(), "x1", "k1"))

	grant, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.NoError(t, err)
	assert.Equal(t, "fallback", grant.Provider)
}

func TestAllocateIsIdempotentPerClient(t *testing.T) {
	providers, pools, quota, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	seedPool(t, pools, "openai", "pool-a", 10)

	first, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.NoError(t, err)
	second, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.NoError(t, err)

	assert.Equal(t, first.PoolID, second.PoolID)
	assert.Equal(t, 1, alloc.ActiveCount())

	// 重複請求不重複扣配額
	usage, err := quota.GetUsage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.Used)
}

func TestAllocateHonorsHintOverExistingBinding(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	seedProvider(t, providers, "anthropic", 1)
	openaiPool := seedPool(t, pools, "openai", "oa-1", 10)
	anthropicPool := seedPool(t, pools, "anthropic", "an-1", 10)

	ctx := context.Background()
	first, err := alloc.Allocate(ctx, "u1", "c1", "")
	require.NoError(t, err)
	require.Equal(t, "openai", first.Provider)

	// 指定別的供應商：不得回傳既有的 openai 綁定，要換到 anthropic
	second, err := alloc.Allocate(ctx, "u1", "c1", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", second.Provider)
	assert.Equal(t, anthropicPool.ID.Hex(), second.PoolID)

	// 舊綁定已解除，佔用不殘留
	assert.Equal(t, 1, alloc.ActiveCount())
	oaSnapshot, snapErr := pools.Get(openaiPool.ID.Hex())
	require.NoError(t, snapErr)
	assert.Equal(t, 0, oaSnapshot.CurrentClients)

	// 同供應商的重複請求仍然冪等
	third, err := alloc.Allocate(ctx, "u1", "c1", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, second.PoolID, third.PoolID)
	assert.Equal(t, 1, alloc.ActiveCount())
}

func TestAllocateAllPoolsExhaustedRefundsQuota(t *testing.T) {
	providers, pools, quota, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	pool := seedPool(t, pools, "openai", "pool-a", 1)
	require.NoError(t, pools.TryAcquire(pool.ID.Hex(), "x1", "k1"))

	_, err := alloc.Allocate(context.Background(), "u1", "c1", "")
	require.Error(t, err)
	assert.Equal(t, cErr.ALL_POOLS_EXHAUSTED, cErr.From(err).ErrorCode())

	usage, usageErr := quota.GetUsage(context.Background(), "u1")
	require.NoError(t, usageErr)
	assert.Equal(t, 0, usage.Used)
}

func TestAllocateHintedProviderExhausted(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "primary", 0)
	seedProvider(t, providers, "fallback", 1)
	full := seedPool(t, pools, "primary", "pr-1", 1)
	seedPool(t, pools, "fallback", "fb-1", 10)
	require.NoError(t, pools.TryAcquire(full.ID.Hex(), "x1", "k1"))

	// 指定供應商時不得偷跑到其他供應商
	_, err := alloc.Allocate(context.Background(), "u1", "c1", "primary")
	require.Error(t, err)
	assert.Equal(t, cErr.POOL_EXHAUSTED, cErr.From(err).ErrorCode())
}

func TestAllocateUnknownProviderHint(t *testing.T) {
	providers, pools, quota, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	seedPool(t, pools, "openai", "pool-a", 10)

	_, err := alloc.Allocate(context.Background(), "u1", "c1", "nope")
	require.Error(t, err)
	assert.Equal(t, cErr.NOT_FOUND, cErr.From(err).ErrorCode())

	usage, usageErr := quota.GetUsage(context.Background(), "u1")
	require.NoError(t, usageErr)
	assert.Equal(t, 0, usage.Used)

	_ = pools
}

func TestAllocateQuotaGateBlocksBeforePools(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	pool := seedPool(t, pools, "openai", "pool-a", 100)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := alloc.Allocate(ctx, "u1", clientN(i), "")
		require.NoError(t, err)
	}

	_, err := alloc.Allocate(ctx, "u1", "c-over", "")
	require.Error(t, err)
	assert.Equal(t, cErr.QUOTA_EXCEEDED, cErr.From(err).ErrorCode())

	// 超額後帳號停用，後續請求直接拒絕
	_, err = alloc.Allocate(ctx, "u1", "c-after", "")
	require.Error(t, err)
	assert.Equal(t, cErr.ACCESS_DISABLED, cErr.From(err).ErrorCode())

	// 配額閘門在池之前：被拒的請求不佔池容量
	snapshot, snapErr := pools.Get(pool.ID.Hex())
	require.NoError(t, snapErr)
	assert.Equal(t, 5, snapshot.CurrentClients)
}

func TestReleaseFreesCapacityForNextClient(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	seedPool(t, pools, "openai", "pool-a", 1)

	ctx := context.Background()
	_, err := alloc.Allocate(ctx, "u1", "c1", "")
	require.NoError(t, err)

	_, err = alloc.Allocate(ctx, "u2", "c2", "")
	require.Error(t, err)

	require.NoError(t, alloc.Release(ctx, "u1", "c1"))
	// 釋放是冪等的
	require.NoError(t, alloc.Release(ctx, "u1", "c1"))

	_, err = alloc.Allocate(ctx, "u2", "c2", "")
	require.NoError(t, err)
}

func TestReleaseUserDropsAllBindings(t *testing.T) {
	providers, pools, _, alloc := newAllocStack(t)
	seedProvider(t, providers, "openai", 0)
	pool := seedPool(t, pools, "openai", "pool-a", 10)

	ctx := context.Background()
	_, err := alloc.Allocate(ctx, "u1", "c1", "")
	require.NoError(t, err)
	_, err = alloc.Allocate(ctx, "u1", "c2", "")
	require.NoError(t, err)
	_, err = alloc.Allocate(ctx, "u2", "c3", "")
	require.NoError(t, err)

	alloc.ReleaseUser(ctx, "u1")

	assert.Equal(t, 1, alloc.ActiveCount())
	snapshot, snapErr := pools.Get(pool.ID.Hex())
	require.NoError(t, snapErr)
	assert.Equal(t, 1, snapshot.CurrentClients)

	_, _, stillBound := alloc.ActiveFor("u2", "c3")
	assert.True(t, stillBound)
}

func clientN(n int) string {
	return string(rune('a'+n)) + "-client"
}
