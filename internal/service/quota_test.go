package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"keybroker/config"
	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQuotaService(t *testing.T, limit, resetDays int) *QuotaService {
	t.Helper()
	conf := &config.Configuration{
		Quota: config.Quota{DefaultLimit: limit, DefaultResetDays: resetDays},
	}
	return NewQuotaServiceWithStore(testTrace(t), zap.NewNop(), conf, nil)
}

func TestCheckAndConsumeEnforcesLimit(t *testing.T) {
	quota := newTestQuotaService(t, 3, 30)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
	}

	err := quota.CheckAndConsume(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, cErr.QUOTA_EXCEEDED, cErr.From(err).ErrorCode())

	// 超額時帳號被停用，之後拒絕的理由變成 access disabled
	err = quota.CheckAndConsume(ctx, "u1")
	require.Error(t, err)
	assert.Equal(t, cErr.ACCESS_DISABLED, cErr.From(err).ErrorCode())

	usage, usageErr := quota.GetUsage(ctx, "u1")
	require.NoError(t, usageErr)
	assert.False(t, usage.Enabled)
	assert.Equal(t, model.DisabledReasonUsageLimit, usage.DisabledReason)
}

func TestRollingResetRestoresQuota(t *testing.T) {
	quota := newTestQuotaService(t, 2, 30)
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	quota.now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
	require.Error(t, quota.CheckAndConsume(ctx, "u1"))

	// 週期未滿：不重置
	current = current.Add(29 * 24 * time.Hour)
	require.Error(t, quota.CheckAndConsume(ctx, "u1"))

	// 週期已滿：歸零、自動恢復啟用
	current = current.Add(2 * 24 * time.Hour)
	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))

	usage, err := quota.GetUsage(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, usage.Enabled)
	assert.Equal(t, 1, usage.Used)
	assert.Equal(t, int64(3), usage.UsedTotal) // 終身累計不重置
}

func TestRolloverDoesNotReenableManualDisable(t *testing.T) {
	quota := newTestQuotaService(t, 10, 30)
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	quota.now = func() time.Time { return current }

	ctx := context.Background()
	disabled := false
	_, err := quota.UpdateUsage(ctx, "u1", &dto.UpdateUsageDto{Enabled: &disabled})
	require.NoError(t, err)

	current = current.Add(31 * 24 * time.Hour)
	quota.Rollover(ctx)

	// 管理端手動停用的帳號不因週期重置復活
	consumeErr := quota.CheckAndConsume(ctx, "u1")
	require.Error(t, consumeErr)
	assert.Equal(t, cErr.ACCESS_DISABLED, cErr.From(consumeErr).ErrorCode())
}

func TestRefundNeverGoesNegative(t *testing.T) {
	quota := newTestQuotaService(t, 5, 30)
	ctx := context.Background()

	quota.Refund(ctx, "u1")
	usage, err := quota.GetUsage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)

	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
	quota.Refund(ctx, "u1")
	usage, err = quota.GetUsage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, usage.Used)
	assert.Equal(t, int64(0), usage.UsedTotal)
}

func TestUpdateUsageReenableClearsReason(t *testing.T) {
	quota := newTestQuotaService(t, 1, 30)
	ctx := context.Background()

	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
	require.Error(t, quota.CheckAndConsume(ctx, "u1"))

	enabled := true
	zero := 0
	usage, err := quota.UpdateUsage(ctx, "u1", &dto.UpdateUsageDto{Enabled: &enabled, Used: &zero})
	require.NoError(t, err)
	assert.True(t, usage.Enabled)
	assert.Empty(t, usage.DisabledReason)

	require.NoError(t, quota.CheckAndConsume(ctx, "u1"))
}

func TestCheckAndConsumeConcurrentSameUser(t *testing.T) {
	quota := newTestQuotaService(t, 100, 30)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := quota.CheckAndConsume(ctx, "u1"); err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
	usage, err := quota.GetUsage(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, usage.Used)
}
