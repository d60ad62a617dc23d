package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/database/mongodb/repository"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"
	"keybroker/utils/validate"

	"go.uber.org/zap"
)

// ProviderStore 供應商目錄的持久層（write-behind；記憶體為權威狀態）
type ProviderStore interface {
	List(ctx context.Context) ([]*model.Provider, error)
	Upsert(ctx context.Context, provider *model.Provider) error
	DeleteByName(ctx context.Context, name string) error
}

// ProviderService 上游供應商目錄。讀多寫少，讀取全部走記憶體。
type ProviderService struct {
	trace  *telemetry.Trace
	logger *zap.Logger
	store  ProviderStore

	mu        sync.RWMutex
	providers map[string]*model.Provider
}

func NewProviderService(trace *telemetry.Trace, logger *zap.Logger, repo *repository.ProviderRepository) *ProviderService {
	return &ProviderService{
		trace:     trace,
		logger:    logger,
		store:     repo,
		providers: make(map[string]*model.Provider),
	}
}

// NewProviderServiceWithStore 測試用建構子，可注入任意 store（nil = 不持久化）
func NewProviderServiceWithStore(trace *telemetry.Trace, logger *zap.Logger, store ProviderStore) *ProviderService {
	return &ProviderService{
		trace:     trace,
		logger:    logger,
		providers: make(map[string]*model.Provider),
		store:     store,
	}
}

// LoadFromStore 啟動時把目錄載入記憶體
func (s *ProviderService) LoadFromStore(ctx context.Context) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if s.store == nil {
		return nil
	}
	providers, err := s.store.List(ctx)
	if err != nil {
		return cErr.DatabaseError("database ListProviders error")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range providers {
		s.providers[p.Name] = p
	}
	return nil
}

// List 依 priority 小者在前；includeInactive=false 時排除停用的供應商
func (s *ProviderService) List(includeInactive bool) []*model.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if !includeInactive && !p.Active {
			continue
		}
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *ProviderService) Get(name string) (*model.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[name]
	if !ok {
		return nil, cErr.NotFound(fmt.Sprintf("provider %q not found", name))
	}
	copied := *p
	return &copied, nil
}

// Upsert 新增或更新供應商。識別碼建立後不可變，重複建立視為更新可變欄位。
func (s *ProviderService) Upsert(ctx context.Context, in *dto.UpsertProviderDto) (*model.Provider, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if !validate.IsValidProviderName(in.Name) {
		return nil, cErr.BadRequestBody(fmt.Sprintf("invalid provider name %q", in.Name))
	}
	if in.Priority < 0 {
		return nil, cErr.BadRequestBody("priority must be non-negative")
	}

	displayName := in.DisplayName
	if displayName == "" {
		displayName = in.Name
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	s.mu.Lock()
	existing, exists := s.providers[in.Name]
	var provider *model.Provider
	if exists {
		copied := *existing
		copied.DisplayName = displayName
		copied.BaseURL = in.BaseURL
		copied.Priority = in.Priority
		copied.Active = active
		copied.UpdatedAt = time.Now().UTC()
		s.providers[in.Name] = &copied
		provider = &copied
	} else {
		now := time.Now().UTC()
		provider = &model.Provider{
			Name:        in.Name,
			DisplayName: displayName,
			BaseURL:     in.BaseURL,
			Priority:    in.Priority,
			Active:      active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.providers[in.Name] = provider
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Upsert(ctx, provider); err != nil {
			s.logger.Warn("persist provider failed", zap.String("provider", provider.Name), zap.Error(err))
		}
	}
	result := *provider
	return &result, nil
}

// Create 嚴格新增：識別碼已存在即拒絕
func (s *ProviderService) Create(ctx context.Context, in *dto.UpsertProviderDto) (*model.Provider, error) {
	s.mu.RLock()
	_, exists := s.providers[in.Name]
	s.mu.RUnlock()
	if exists {
		return nil, cErr.DuplicateProvider(fmt.Sprintf("provider %q already exists", in.Name))
	}
	return s.Upsert(ctx, in)
}

// Delete 刪除供應商。poolCount 由呼叫端（握有池狀態者）帶入，仍被引用時拒絕。
func (s *ProviderService) Delete(ctx context.Context, name string, poolCount int) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if poolCount > 0 {
		return cErr.ProviderInUse(fmt.Sprintf("provider %q still has %d key pool(s)", name, poolCount))
	}

	s.mu.Lock()
	_, exists := s.providers[name]
	if exists {
		delete(s.providers, name)
	}
	s.mu.Unlock()
	if !exists {
		return cErr.NotFound(fmt.Sprintf("provider %q not found", name))
	}

	if s.store != nil {
		if err := s.store.DeleteByName(ctx, name); err != nil {
			s.logger.Warn("delete provider failed", zap.String("provider", name), zap.Error(err))
		}
	}
	return nil
}
