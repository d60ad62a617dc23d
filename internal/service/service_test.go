package service

import (
	"context"
	"testing"

	"keybroker/config"
	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/dto"
	"keybroker/internal/telemetry"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testTrace(t *testing.T) *telemetry.Trace {
	t.Helper()
	trace, err := telemetry.NewTrace(nil)
	require.NoError(t, err)
	return trace
}

func testConf() *config.Configuration {
	return &config.Configuration{
		Session: config.Session{
			AuthSalt:               "unit-test-salt",
			HeartbeatIntervalSec:   60,
			HeartbeatTimeoutFactor: 3,
			AuthSkewSec:            300,
			SendBuffer:             4,
		},
		Quota: config.Quota{
			DefaultLimit:     5,
			DefaultResetDays: 30,
		},
	}
}

func newTestProviderService(t *testing.T) *ProviderService {
	t.Helper()
	return NewProviderServiceWithStore(testTrace(t), zap.NewNop(), nil)
}

func newTestPoolService(t *testing.T) *PoolService {
	t.Helper()
	return NewPoolServiceWithStore(testTrace(t), zap.NewNop(), telemetry.NewMetric(nil), nil)
}

func seedProvider(t *testing.T, s *ProviderService, name string, priority int) *model.Provider {
	t.Helper()
	provider, err := s.Upsert(context.Background(), &dto.UpsertProviderDto{
		Name:     name,
		BaseURL:  "https://" + name + ".example.com",
		Priority: priority,
	})
	require.NoError(t, err)
	return provider
}

func seedPool(t *testing.T, s *PoolService, providerName, name string, maxClients int) *model.KeyPool {
	t.Helper()
	pool, err := s.CreatePool(context.Background(), providerName, &dto.CreateKeyPoolDto{
		ProviderName: providerName,
		Name:         name,
		APIKey:       "sk-" + name,
		MaxClients:   maxClients,
	})
	require.NoError(t, err)
	return pool
}
