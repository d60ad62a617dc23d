package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keybroker/internal/core"
	fluentdModel "keybroker/internal/database/fluentd/model"
	fluentdRepo "keybroker/internal/database/fluentd/repository"
	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/database/mongodb/repository"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// AllocationStore 綁定稽核的持久層（append-only）
type AllocationStore interface {
	Insert(ctx context.Context, allocation *model.Allocation) (*model.Allocation, error)
	MarkReleased(ctx context.Context, id primitive.ObjectID, releasedAt time.Time) error
	ListByPool(ctx context.Context, poolID string, opts core.ListOptions) ([]*model.Allocation, error)
}

// AllocationEventSink 綁定事件的觀測通道（best-effort）
type AllocationEventSink interface {
	LogAllocationEvent(ctx context.Context, event fluentdModel.AllocationEventLog) error
}

// activeAllocation 執行中的綁定（記憶體為權威狀態）
type activeAllocation struct {
	id           primitive.ObjectID
	poolID       string
	providerName string
	grant        dto.AllocationGrantDto
}

// AllocationService 准入控制核心：配額 → 供應商優先序 → 池內最低負載，first-fit
type AllocationService struct {
	trace    *telemetry.Trace
	logger   *zap.Logger
	metric   *telemetry.Metric
	provider *ProviderService
	pool     *PoolService
	quota    *QuotaService
	store    AllocationStore
	events   AllocationEventSink

	mu     sync.Mutex
	active map[string]*activeAllocation // "userID/clientID" -> allocation
}

func NewAllocationService(
	trace *telemetry.Trace,
	logger *zap.Logger,
	metric *telemetry.Metric,
	provider *ProviderService,
	pool *PoolService,
	quota *QuotaService,
	repo *repository.AllocationRepository,
	fluentd *fluentdRepo.FluentdRepository,
) *AllocationService {
	return &AllocationService{
		trace:    trace,
		logger:   logger,
		metric:   metric,
		provider: provider,
		pool:     pool,
		quota:    quota,
		store:    repo,
		events:   fluentd.Events(),
		active:   make(map[string]*activeAllocation),
	}
}

// NewAllocationServiceWithStore 測試用建構子（nil store / nil events = 不落地）
func NewAllocationServiceWithStore(
	trace *telemetry.Trace,
	logger *zap.Logger,
	metric *telemetry.Metric,
	provider *ProviderService,
	pool *PoolService,
	quota *QuotaService,
	store AllocationStore,
	events AllocationEventSink,
) *AllocationService {
	return &AllocationService{
		trace:    trace,
		logger:   logger,
		metric:   metric,
		provider: provider,
		pool:     pool,
		quota:    quota,
		store:    store,
		events:   events,
		active:   make(map[string]*activeAllocation),
	}
}

// Allocate 為 (user, client) 挑一個池並綁定。
// 順序：配額閘門 → 供應商依 priority 升冪 → 池依佔用升冪 → 第一個成功者。
// 同一 (user, client) 重複請求回傳既有授權（冪等），不重複扣配額。
func (s *AllocationService) Allocate(ctx context.Context, userID, clientID, providerHint string) (returnedGrant *dto.AllocationGrantDto, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	traceMetadata := core.TraceAllocationMeta{UserID: userID, ClientID: clientID, Provider: providerHint}
	s.trace.ApplyTraceAttributes(span, traceMetadata)

	// 重複請求：同供應商（或未指定）回傳既有綁定；
	// 指定了別的供應商就先解除舊綁定，走正常分配換過去
	s.mu.Lock()
	existing, ok := s.active[bindKey(userID, clientID)]
	if ok && (providerHint == "" || existing.providerName == providerHint) {
		grant := existing.grant
		s.mu.Unlock()
		return &grant, nil
	}
	s.mu.Unlock()
	if ok {
		_ = s.Release(ctx, userID, clientID)
	}

	// 1) 配額閘門：停用或超額直接拒絕，不碰任何池
	if err := s.quota.CheckAndConsume(ctx, userID); err != nil {
		s.countFailure(err)
		s.emitEvent(ctx, "rejected", userID, clientID, "", "", cErr.From(err).Error())
		return nil, err
	}

	// 2) 候選供應商：有指定就只試該供應商，否則全部啟用者依優先序
	candidates, err := s.candidateProviders(providerHint)
	if err != nil {
		s.quota.Refund(ctx, userID)
		s.countFailure(err)
		return nil, err
	}

	// 3) first-fit：供應商照 priority，池內照佔用升冪
	for _, provider := range candidates {
		for _, pool := range s.pool.ListPoolsForProvider(provider.Name) {
			if acquireErr := s.pool.TryAcquire(pool.ID.Hex(), userID, clientID); acquireErr != nil {
				continue
			}
			return s.grant(ctx, userID, clientID, provider, pool)
		}
	}

	// 4) 全滿：退回配額。這是正常營運狀態，不以 error 等級記錄。
	s.quota.Refund(ctx, userID)
	if providerHint != "" {
		returnedError = cErr.PoolExhausted(fmt.Sprintf("all pools of provider %q are at capacity", providerHint))
	} else {
		returnedError = cErr.AllPoolsExhausted("no eligible pool has free capacity")
	}
	s.countFailure(returnedError)
	s.logger.Info("allocation rejected, pools exhausted",
		zap.String("user", userID),
		zap.String("client", clientID),
		zap.String("provider_hint", providerHint),
	)
	s.emitEvent(ctx, "rejected", userID, clientID, providerHint, "", cErr.From(returnedError).Error())
	return nil, returnedError
}

// Release 解除 (user, client) 的綁定。冪等：沒有綁定就是 no-op。
func (s *AllocationService) Release(ctx context.Context, userID, clientID string) (returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	s.mu.Lock()
	allocation, ok := s.active[bindKey(userID, clientID)]
	if ok {
		delete(s.active, bindKey(userID, clientID))
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}

	s.trace.ApplyTraceAttributes(span, core.TraceAllocationMeta{
		UserID:   userID,
		ClientID: clientID,
		Provider: allocation.providerName,
		PoolID:   allocation.poolID,
		Status:   "released",
	})

	s.pool.Release(allocation.poolID, clientID)
	s.markReleased(allocation.id)
	s.emitEvent(ctx, "released", userID, clientID, allocation.providerName, allocation.poolID, "")
	return nil
}

// ReleaseUser 解除某身份名下所有綁定（會話關閉 / 被踢出時）
func (s *AllocationService) ReleaseUser(ctx context.Context, userID string) {
	s.mu.Lock()
	clients := make([]string, 0, 1)
	for key := range s.active {
		if keyUser, clientID, ok := splitBindKey(key); ok && keyUser == userID {
			clients = append(clients, clientID)
		}
	}
	s.mu.Unlock()

	for _, clientID := range clients {
		_ = s.Release(ctx, userID, clientID)
	}
}

// ActiveFor 查詢 (user, client) 目前的綁定（觀測用）
func (s *AllocationService) ActiveFor(userID, clientID string) (poolID, providerName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allocation, found := s.active[bindKey(userID, clientID)]
	if !found {
		return "", "", false
	}
	return allocation.poolID, allocation.providerName, true
}

// ActiveCount 目前綁定總數
func (s *AllocationService) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// ListAllocations 稽核列表（讀路徑直接走持久層）
func (s *AllocationService) ListAllocations(ctx context.Context, poolID string, page, size int64) ([]*dto.AllocationResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if s.store == nil {
		return []*dto.AllocationResponseDto{}, nil
	}
	allocations, err := s.store.ListByPool(ctx, poolID, core.ListOptions{Page: page, Size: size})
	if err != nil {
		return nil, cErr.DatabaseError("database ListAllocations error")
	}
	out := make([]*dto.AllocationResponseDto, len(allocations))
	for i, a := range allocations {
		out[i] = &dto.AllocationResponseDto{
			ID:           a.ID.Hex(),
			PoolID:       a.PoolID,
			ProviderName: a.ProviderName,
			UserID:       a.UserID,
			ClientID:     a.ClientID,
			AllocatedAt:  a.AllocatedAt,
			ReleasedAt:   a.ReleasedAt,
		}
	}
	return out, nil
}

func (s *AllocationService) candidateProviders(providerHint string) ([]*model.Provider, error) {
	if providerHint == "" {
		return s.provider.List(false), nil
	}
	provider, err := s.provider.Get(providerHint)
	if err != nil {
		return nil, err
	}
	if !provider.Active {
		return nil, cErr.NotFound(fmt.Sprintf("provider %q is inactive", providerHint))
	}
	return []*model.Provider{provider}, nil
}

// grant 綁定成功後的收尾：記錄稽核、發事件、回傳授權
func (s *AllocationService) grant(
	ctx context.Context,
	userID, clientID string,
	provider *model.Provider,
	pool *model.KeyPool,
) (*dto.AllocationGrantDto, error) {

	profile := profileFor(provider.Name)
	headerName, headerValue := profile.AuthHeader(pool.APIKey)
	allocation := &activeAllocation{
		id:           primitive.NewObjectID(),
		poolID:       pool.ID.Hex(),
		providerName: provider.Name,
		grant: dto.AllocationGrantDto{
			Provider:   provider.Name,
			BaseURL:    profile.NormalizeBaseURL(provider.BaseURL),
			APIKey:     pool.APIKey,
			AuthHeader: headerName,
			AuthValue:  headerValue,
			PoolID:     pool.ID.Hex(),
		},
	}

	s.mu.Lock()
	s.active[bindKey(userID, clientID)] = allocation
	s.mu.Unlock()

	if s.metric != nil && s.metric.AllocationsTotal != nil {
		s.metric.AllocationsTotal.WithLabelValues(provider.Name, pool.Name).Inc()
	}
	s.persistAllocation(&model.Allocation{
		ID:           allocation.id,
		PoolID:       allocation.poolID,
		ProviderName: provider.Name,
		UserID:       userID,
		ClientID:     clientID,
		AllocatedAt:  time.Now().UTC(),
	})
	s.emitEvent(ctx, "allocated", userID, clientID, provider.Name, allocation.poolID, "")

	grant := allocation.grant
	return &grant, nil
}

// persistAllocation write-behind，不阻塞分配熱路徑
func (s *AllocationService) persistAllocation(allocation *model.Allocation) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := s.store.Insert(ctx, allocation); err != nil {
			s.logger.Warn("persist allocation failed", zap.String("pool", allocation.PoolID), zap.Error(err))
		}
	}()
}

func (s *AllocationService) markReleased(id primitive.ObjectID) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.MarkReleased(ctx, id, time.Now().UTC()); err != nil {
			s.logger.Warn("mark allocation released failed", zap.String("allocation", id.Hex()), zap.Error(err))
		}
	}()
}

func (s *AllocationService) emitEvent(ctx context.Context, event, userID, clientID, provider, poolID, reason string) {
	if s.events == nil {
		return
	}
	_ = s.events.LogAllocationEvent(ctx, fluentdModel.AllocationEventLog{
		Event:    event,
		UserID:   userID,
		ClientID: clientID,
		Provider: provider,
		PoolID:   poolID,
		Reason:   reason,
		EventTS:  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *AllocationService) countFailure(err error) {
	if s.metric == nil || s.metric.AllocationFailTotal == nil {
		return
	}
	s.metric.AllocationFailTotal.WithLabelValues(cErr.From(err).Error()).Inc()
}

func bindKey(userID, clientID string) string {
	return userID + "\x00" + clientID
}

func splitBindKey(key string) (userID, clientID string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '\x00' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
