package service

import (
	"context"
	"testing"

	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSortsByPriorityAscending(t *testing.T) {
	providers := newTestProviderService(t)
	seedProvider(t, providers, "gamma", 2)
	seedProvider(t, providers, "alpha", 0)
	seedProvider(t, providers, "beta", 0)
	seedProvider(t, providers, "delta", 1)

	names := make([]string, 0, 4)
	for _, p := range providers.List(true) {
		names = append(names, p.Name)
	}
	// priority 升冪，同 priority 以名稱決定順序
	assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, names)
}

func TestListSkipsInactiveProviders(t *testing.T) {
	providers := newTestProviderService(t)
	seedProvider(t, providers, "active", 0)
	inactive := false
	_, err := providers.Upsert(context.Background(), &dto.UpsertProviderDto{
		Name:     "disabled",
		BaseURL:  "https://disabled.example.com",
		Priority: 1,
		Active:   &inactive,
	})
	require.NoError(t, err)

	assert.Len(t, providers.List(false), 1)
	assert.Len(t, providers.List(true), 2)
}

func TestUpsertRejectsInvalidName(t *testing.T) {
	providers := newTestProviderService(t)
	_, err := providers.Upsert(context.Background(), &dto.UpsertProviderDto{
		Name:     "9starts-with-digit",
		BaseURL:  "https://x.example.com",
		Priority: 0,
	})
	require.Error(t, err)
	assert.Equal(t, cErr.BAD_REQUEST_BODY, cErr.From(err).ErrorCode())
}

func TestUpsertKeepsNameImmutable(t *testing.T) {
	providers := newTestProviderService(t)
	created := seedProvider(t, providers, "openai", 3)

	updated, err := providers.Upsert(context.Background(), &dto.UpsertProviderDto{
		Name:     "openai",
		BaseURL:  "https://new.example.com",
		Priority: 0,
	})
	require.NoError(t, err)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, "https://new.example.com", updated.BaseURL)
	assert.Equal(t, 0, updated.Priority)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	providers := newTestProviderService(t)
	seedProvider(t, providers, "openai", 0)

	_, err := providers.Create(context.Background(), &dto.UpsertProviderDto{
		Name:     "openai",
		BaseURL:  "https://other.example.com",
		Priority: 1,
	})
	require.Error(t, err)
	assert.Equal(t, cErr.DUPLICATE_PROVIDER, cErr.From(err).ErrorCode())
}

func TestDeleteRefusesWhilePoolsRemain(t *testing.T) {
	providers := newTestProviderService(t)
	seedProvider(t, providers, "openai", 0)

	err := providers.Delete(context.Background(), "openai", 2)
	require.Error(t, err)
	assert.Equal(t, cErr.PROVIDER_IN_USE, cErr.From(err).ErrorCode())

	require.NoError(t, providers.Delete(context.Background(), "openai", 0))
	_, err = providers.Get("openai")
	require.Error(t, err)
	assert.Equal(t, cErr.NOT_FOUND, cErr.From(err).ErrorCode())
}
