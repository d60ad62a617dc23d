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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// PoolStore 密鑰池的持久層（write-behind；佔用數的權威狀態在記憶體）
type PoolStore interface {
	List(ctx context.Context) ([]*model.KeyPool, error)
	Insert(ctx context.Context, pool *model.KeyPool) (*model.KeyPool, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, update bson.M) (int64, error)
	UpdateOccupancy(ctx context.Context, id primitive.ObjectID, occupancy int) error
}

// poolState 單一池的執行期狀態。check-and-increment 必須在 mu 內完成，
// 同一池上的併發 acquire 絕不能同時越過容量上限。
type poolState struct {
	mu        sync.Mutex
	pool      model.KeyPool
	occupants map[string]string // clientID -> userID
}

// PoolService 管理所有密鑰池：原子 acquire/release 與容量守護
type PoolService struct {
	trace  *telemetry.Trace
	logger *zap.Logger
	metric *telemetry.Metric
	store  PoolStore

	mu    sync.RWMutex
	pools map[string]*poolState // pool ID (hex) -> state
}

func NewPoolService(trace *telemetry.Trace, logger *zap.Logger, metric *telemetry.Metric, repo *repository.KeyPoolRepository) *PoolService {
	return &PoolService{
		trace:  trace,
		logger: logger,
		metric: metric,
		store:  repo,
		pools:  make(map[string]*poolState),
	}
}

// NewPoolServiceWithStore 測試用建構子（nil store = 不持久化）
func NewPoolServiceWithStore(trace *telemetry.Trace, logger *zap.Logger, metric *telemetry.Metric, store PoolStore) *PoolService {
	return &PoolService{
		trace:  trace,
		logger: logger,
		metric: metric,
		store:  store,
		pools:  make(map[string]*poolState),
	}
}

// LoadFromStore 啟動時載入池目錄；佔用數一律歸零（上次行程的綁定已失效）
func (s *PoolService) LoadFromStore(ctx context.Context) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if s.store == nil {
		return nil
	}
	pools, err := s.store.List(ctx)
	if err != nil {
		return cErr.DatabaseError("database ListPools error")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range pools {
		copied := *p
		copied.CurrentClients = 0
		s.pools[p.ID.Hex()] = &poolState{
			pool:      copied,
			occupants: make(map[string]string),
		}
	}
	return nil
}

// CreatePool 新增密鑰池
func (s *PoolService) CreatePool(ctx context.Context, providerName string, in *dto.CreateKeyPoolDto) (*model.KeyPool, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if in.MaxClients < model.UnboundedClients {
		return nil, cErr.BadRequestBody("maxClients must be >= -1")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	now := time.Now().UTC()
	pool := &model.KeyPool{
		ID:           primitive.NewObjectID(),
		ProviderName: providerName,
		Name:         in.Name,
		APIKey:       in.APIKey,
		MaxClients:   in.MaxClients,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.pools[pool.ID.Hex()] = &poolState{
		pool:      *pool,
		occupants: make(map[string]string),
	}
	s.mu.Unlock()

	if s.store != nil {
		if _, err := s.store.Insert(ctx, pool); err != nil {
			s.logger.Warn("persist key pool failed", zap.String("pool", pool.ID.Hex()), zap.Error(err))
		}
	}
	return pool, nil
}

// UpdatePool 熱更新容量 / 啟用旗標。容量調小或停用不會驅逐既有佔用者，
// 只是不再受理新的 acquire。
func (s *PoolService) UpdatePool(ctx context.Context, poolID string, in *dto.UpdateKeyPoolDto) (*model.KeyPool, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	state, err := s.state(poolID)
	if err != nil {
		return nil, err
	}

	update := bson.M{}
	state.mu.Lock()
	if in.MaxClients != nil {
		if *in.MaxClients < model.UnboundedClients {
			state.mu.Unlock()
			return nil, cErr.BadRequestBody("maxClients must be >= -1")
		}
		state.pool.MaxClients = *in.MaxClients
		update["maxClients"] = *in.MaxClients
	}
	if in.Active != nil {
		state.pool.Active = *in.Active
		update["active"] = *in.Active
	}
	state.pool.UpdatedAt = time.Now().UTC()
	snapshot := state.pool
	snapshot.CurrentClients = len(state.occupants)
	state.mu.Unlock()

	if s.store != nil && len(update) > 0 {
		if _, err := s.store.UpdateByID(ctx, snapshot.ID, update); err != nil {
			s.logger.Warn("persist key pool update failed", zap.String("pool", poolID), zap.Error(err))
		}
	}
	return &snapshot, nil
}

// TryAcquire 原子 check-and-increment。池停用或已滿回傳 PoolExhausted；
// 不限容量（-1）永遠成功。
func (s *PoolService) TryAcquire(poolID, userID, clientID string) error {
	state, err := s.state(poolID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if !state.pool.Active {
		return cErr.PoolExhausted(fmt.Sprintf("pool %s is inactive", poolID))
	}
	if !state.pool.Unbounded() && len(state.occupants) >= state.pool.MaxClients {
		return cErr.PoolExhausted(fmt.Sprintf("pool %s is at capacity", poolID))
	}
	state.occupants[clientID] = userID
	s.reportOccupancy(&state.pool, len(state.occupants))
	return nil
}

// Release 原子遞減，地板為零；釋放不存在的佔用是 no-op 而非錯誤（冪等）
func (s *PoolService) Release(poolID, clientID string) {
	state, err := s.state(poolID)
	if err != nil {
		return
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if _, held := state.occupants[clientID]; !held {
		return
	}
	delete(state.occupants, clientID)
	s.reportOccupancy(&state.pool, len(state.occupants))
}

// HealthStatus 池健康狀態：容量、佔用、目前佔用者
func (s *PoolService) HealthStatus(poolID string) (*dto.PoolHealthDto, error) {
	state, err := s.state(poolID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	clientIDs := make([]string, 0, len(state.occupants))
	for clientID := range state.occupants {
		clientIDs = append(clientIDs, clientID)
	}
	sort.Strings(clientIDs)
	return &dto.PoolHealthDto{
		ID:             poolID,
		ProviderName:   state.pool.ProviderName,
		Name:           state.pool.Name,
		MaxClients:     state.pool.MaxClients,
		CurrentClients: len(state.occupants),
		Active:         state.pool.Active,
		ClientIDs:      clientIDs,
	}, nil
}

// Get 單一池快照（含即時佔用數）
func (s *PoolService) Get(poolID string) (*model.KeyPool, error) {
	state, err := s.state(poolID)
	if err != nil {
		return nil, err
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	snapshot := state.pool
	snapshot.CurrentClients = len(state.occupants)
	return &snapshot, nil
}

// ListPools 全部池快照
func (s *PoolService) ListPools() []*model.KeyPool {
	s.mu.RLock()
	states := make([]*poolState, 0, len(s.pools))
	for _, st := range s.pools {
		states = append(states, st)
	}
	s.mu.RUnlock()

	out := make([]*model.KeyPool, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		snapshot := st.pool
		snapshot.CurrentClients = len(st.occupants)
		st.mu.Unlock()
		out = append(out, &snapshot)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProviderName != out[j].ProviderName {
			return out[i].ProviderName < out[j].ProviderName
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ListPoolsForProvider 指定供應商的啟用池，佔用少者在前（least-loaded first）
func (s *PoolService) ListPoolsForProvider(providerName string) []*model.KeyPool {
	all := s.ListPools()
	out := make([]*model.KeyPool, 0, len(all))
	for _, p := range all {
		if p.ProviderName != providerName || !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CurrentClients < out[j].CurrentClients
	})
	return out
}

// CountByProvider 供應商底下的池數（刪除前的引用檢查）
func (s *PoolService) CountByProvider(providerName string) int {
	count := 0
	for _, p := range s.ListPools() {
		if p.ProviderName == providerName {
			count++
		}
	}
	return count
}

// PersistOccupancy 把目前各池佔用數 write-behind 到持久層（排程呼叫）
func (s *PoolService) PersistOccupancy(ctx context.Context) {
	if s.store == nil {
		return
	}
	for _, p := range s.ListPools() {
		if err := s.store.UpdateOccupancy(ctx, p.ID, p.CurrentClients); err != nil {
			s.logger.Warn("persist occupancy failed", zap.String("pool", p.ID.Hex()), zap.Error(err))
		}
	}
}

func (s *PoolService) state(poolID string) (*poolState, error) {
	s.mu.RLock()
	state, ok := s.pools[poolID]
	s.mu.RUnlock()
	if !ok {
		return nil, cErr.NotFound(fmt.Sprintf("pool %s not found", poolID))
	}
	return state, nil
}

func (s *PoolService) reportOccupancy(pool *model.KeyPool, occupancy int) {
	if s.metric == nil || s.metric.PoolOccupancy == nil {
		return
	}
	s.metric.PoolOccupancy.WithLabelValues(pool.ProviderName, pool.Name).Set(float64(occupancy))
}
