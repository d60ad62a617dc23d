package service

import (
	"context"
	"fmt"

	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/dto"
	"keybroker/internal/telemetry"
)

// StatsService 管理端唯讀彙總：供應商 / 池的佔用與使用率
type StatsService struct {
	trace    *telemetry.Trace
	provider *ProviderService
	pool     *PoolService
	session  *SessionService
}

func NewStatsService(trace *telemetry.Trace, provider *ProviderService, pool *PoolService, session *SessionService) *StatsService {
	return &StatsService{trace: trace, provider: provider, pool: pool, session: session}
}

// ProviderStats 單一供應商的池統計
func (s *StatsService) ProviderStats(ctx context.Context, providerName string) (*dto.ProviderStatsDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	provider, err := s.provider.Get(providerName)
	if err != nil {
		return nil, err
	}
	return s.buildProviderStats(provider), nil
}

// Summary 全系統彙總
func (s *StatsService) Summary(ctx context.Context) *dto.StatsSummaryDto {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)
	_ = ctx

	providers := s.provider.List(true)
	out := &dto.StatsSummaryDto{
		Providers:      make([]dto.ProviderStatsDto, 0, len(providers)),
		TotalProviders: len(providers),
	}
	for _, provider := range providers {
		stats := s.buildProviderStats(provider)
		out.Providers = append(out.Providers, *stats)
		out.TotalPools += stats.PoolCount
		out.TotalClients += stats.CurrentClients
	}
	for _, pool := range s.pool.ListPools() {
		if pool.Unbounded() {
			out.HasUnbounded = true
			continue
		}
		out.TotalCapacity += pool.MaxClients
	}
	if s.session != nil {
		out.ActiveSessions = s.session.Count()
	}
	return out
}

func (s *StatsService) buildProviderStats(provider *model.Provider) *dto.ProviderStatsDto {
	pools := s.pool.ListPools()
	stats := &dto.ProviderStatsDto{
		Name:        provider.Name,
		DisplayName: provider.DisplayName,
		Priority:    provider.Priority,
		Active:      provider.Active,
		Pools:       make([]dto.PoolStatsDto, 0),
	}
	for _, pool := range pools {
		if pool.ProviderName != provider.Name {
			continue
		}
		item := dto.PoolStatsDto{
			ID:             pool.ID.Hex(),
			Name:           pool.Name,
			CurrentClients: pool.CurrentClients,
			Active:         pool.Active,
		}
		if pool.Unbounded() {
			item.MaxClients = "∞" // 不限容量
		} else {
			item.MaxClients = fmt.Sprintf("%d", pool.MaxClients)
			if pool.MaxClients > 0 {
				item.UsageRate = float64(pool.CurrentClients) / float64(pool.MaxClients) * 100
			}
		}
		stats.Pools = append(stats.Pools, item)
		stats.PoolCount++
		stats.CurrentClients += pool.CurrentClients
	}
	return stats
}
