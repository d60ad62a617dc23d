package service

import (
	"context"
	"testing"

	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProviderStatsRendersCapacity(t *testing.T) {
	providers := newTestProviderService(t)
	pools := newTestPoolService(t)
	stats := NewStatsService(testTrace(t), providers, pools, nil)

	seedProvider(t, providers, "openai", 0)
	bounded := seedPool(t, pools, "openai", "bounded", 4)
	seedPool(t, pools, "openai", "unbounded", model.UnboundedClients)

	require.NoError(t, pools.TryAcquire(bounded.ID.Hex(), "u1", "c1"))

	out, err := stats.ProviderStats(context.Background(), "openai")
	require.NoError(t, err)
	require.Equal(t, 2, out.PoolCount)
	assert.Equal(t, 1, out.CurrentClients)

	byName := map[string]string{}
	for _, p := range out.Pools {
		byName[p.Name] = p.MaxClients
	}
	assert.Equal(t, "4", byName["bounded"])
	assert.Equal(t, "∞", byName["unbounded"])

	for _, p := range out.Pools {
		if p.Name == "bounded" {
			assert.InDelta(t, 25.0, p.UsageRate, 0.001)
		}
	}
}

func TestSummaryAggregatesAcrossProviders(t *testing.T) {
	trace := testTrace(t)
	logger := zap.NewNop()
	metric := telemetry.NewMetric(nil)
	providers := NewProviderServiceWithStore(trace, logger, nil)
	pools := NewPoolServiceWithStore(trace, logger, metric, nil)
	stats := NewStatsService(trace, providers, pools, nil)

	seedProvider(t, providers, "openai", 0)
	seedProvider(t, providers, "anthropic", 1)
	a := seedPool(t, pools, "openai", "a", 5)
	seedPool(t, pools, "anthropic", "b", 5)

	require.NoError(t, pools.TryAcquire(a.ID.Hex(), "u1", "c1"))
	require.NoError(t, pools.TryAcquire(a.ID.Hex(), "u2", "c2"))

	summary := stats.Summary(context.Background())
	assert.Equal(t, 2, summary.TotalProviders)
	assert.Equal(t, 2, summary.TotalPools)
	assert.Equal(t, 2, summary.TotalClients)
	assert.Equal(t, 10, summary.TotalCapacity)
	assert.False(t, summary.HasUnbounded)
	require.Len(t, summary.Providers, 2)
	// 彙總順序跟隨供應商優先序
	assert.Equal(t, "openai", summary.Providers[0].Name)
}

func TestSummaryRatedCapacitySkipsUnboundedPools(t *testing.T) {
	trace := testTrace(t)
	logger := zap.NewNop()
	metric := telemetry.NewMetric(nil)
	providers := NewProviderServiceWithStore(trace, logger, nil)
	pools := NewPoolServiceWithStore(trace, logger, metric, nil)
	stats := NewStatsService(trace, providers, pools, nil)

	seedProvider(t, providers, "openai", 0)
	seedPool(t, pools, "openai", "bounded", 7)
	seedPool(t, pools, "openai", "unbounded", model.UnboundedClients)

	summary := stats.Summary(context.Background())
	// 額定容量只加總有界的池，不限容量另以旗標呈現
	assert.Equal(t, 7, summary.TotalCapacity)
	assert.True(t, summary.HasUnbounded)
}
