package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"keybroker/config"
	"keybroker/internal/database/mongodb/model"
	"keybroker/internal/database/mongodb/repository"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// UsageStore 用量計數的持久層（write-behind）
type UsageStore interface {
	GetByUserID(ctx context.Context, userID string) (*model.UsageCounter, error)
	Save(ctx context.Context, counter *model.UsageCounter) error
}

// userQuota 單一用戶的計數與鎖。check 與 increment 必須在同一把鎖內，
// 否則同用戶併發請求會重複計數。
type userQuota struct {
	mu      sync.Mutex
	counter model.UsageCounter
}

// QuotaService 每用戶呼叫次數配額，滾動視窗重置
type QuotaService struct {
	trace  *telemetry.Trace
	logger *zap.Logger
	conf   *config.Configuration
	store  UsageStore

	mu    sync.Mutex
	users map[string]*userQuota
	now   func() time.Time
}

func NewQuotaService(trace *telemetry.Trace, logger *zap.Logger, conf *config.Configuration, repo *repository.UsageCounterRepository) *QuotaService {
	return &QuotaService{
		trace:  trace,
		logger: logger,
		conf:   conf,
		store:  repo,
		users:  make(map[string]*userQuota),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewQuotaServiceWithStore 測試用建構子（nil store = 不持久化）
func NewQuotaServiceWithStore(trace *telemetry.Trace, logger *zap.Logger, conf *config.Configuration, store UsageStore) *QuotaService {
	return &QuotaService{
		trace:  trace,
		logger: logger,
		conf:   conf,
		store:  store,
		users:  make(map[string]*userQuota),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckAndConsume 配額閘門：停用即拒絕；週期已過先歸零再檢查；
// 達上限拒絕並標記停用（下次重置自動恢復）；否則 used+1 放行。
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID string) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	entry := s.entryFor(ctx, userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	s.rolloverLocked(entry)

	if !entry.counter.Enabled {
		return cErr.AccessDisabled(fmt.Sprintf("user %s is disabled: %s", userID, entry.counter.DisabledReason))
	}
	if entry.counter.Used >= entry.counter.UsageLimit {
		entry.counter.Enabled = false
		entry.counter.DisabledReason = model.DisabledReasonUsageLimit
		s.persist(entry.counter)
		return cErr.QuotaExceeded(fmt.Sprintf("user %s reached usage limit %d", userID, entry.counter.UsageLimit))
	}

	entry.counter.Used++
	entry.counter.UsedTotal++
	s.persist(entry.counter)
	return nil
}

// Refund 退回一次計數（配額通過但所有池皆滿時由分配引擎呼叫）
func (s *QuotaService) Refund(ctx context.Context, userID string) {
	entry := s.entryFor(ctx, userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.counter.Used > 0 {
		entry.counter.Used--
	}
	if entry.counter.UsedTotal > 0 {
		entry.counter.UsedTotal--
	}
	s.persist(entry.counter)
}

// Rollover 掃描所有已載入用戶並套用週期重置（排程呼叫）
func (s *QuotaService) Rollover(ctx context.Context) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	s.mu.Lock()
	entries := make([]*userQuota, 0, len(s.users))
	for _, e := range s.users {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		entry.mu.Lock()
		if s.rolloverLocked(entry) {
			s.persist(entry.counter)
		}
		entry.mu.Unlock()
	}
}

// GetUsage 讀取單一用戶用量（管理端）
func (s *QuotaService) GetUsage(ctx context.Context, userID string) (*dto.UsageResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	entry := s.entryFor(ctx, userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.toUsageDtoLocked(entry), nil
}

// UpdateUsage 管理端調整配額（上限、週期、啟用旗標、歸零）
func (s *QuotaService) UpdateUsage(ctx context.Context, userID string, in *dto.UpdateUsageDto) (*dto.UsageResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	entry := s.entryFor(ctx, userID)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if in.UsageLimit != nil {
		entry.counter.UsageLimit = *in.UsageLimit
	}
	if in.ResetDays != nil {
		entry.counter.ResetDays = *in.ResetDays
	}
	if in.Used != nil {
		entry.counter.Used = *in.Used
	}
	if in.Enabled != nil {
		entry.counter.Enabled = *in.Enabled
		if *in.Enabled {
			entry.counter.DisabledReason = ""
		}
	}
	s.persist(entry.counter)
	return s.toUsageDtoLocked(entry), nil
}

// rolloverLocked 週期已過就歸零並推進 lastResetAt；因超額停用者自動恢復。
// 呼叫端須持有 entry.mu。回傳是否有重置。
func (s *QuotaService) rolloverLocked(entry *userQuota) bool {
	cycle := time.Duration(entry.counter.ResetDays) * 24 * time.Hour
	if cycle <= 0 {
		return false
	}
	now := s.now()
	if now.Sub(entry.counter.LastResetAt) < cycle {
		return false
	}
	entry.counter.Used = 0
	entry.counter.LastResetAt = now
	if !entry.counter.Enabled && entry.counter.DisabledReason == model.DisabledReasonUsageLimit {
		entry.counter.Enabled = true
		entry.counter.DisabledReason = ""
	}
	return true
}

// entryFor 取得（或初始化）用戶計數；首次接觸時嘗試從持久層載入
func (s *QuotaService) entryFor(ctx context.Context, userID string) *userQuota {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.users[userID]; ok {
		return entry
	}

	entry := &userQuota{}
	if s.store != nil {
		counter, err := s.store.GetByUserID(ctx, userID)
		if err == nil {
			entry.counter = *counter
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			s.logger.Warn("load usage counter failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if entry.counter.UserID == "" {
		entry.counter = model.UsageCounter{
			UserID:      userID,
			Enabled:     true,
			UsageLimit:  s.conf.Quota.Limit(),
			ResetDays:   s.conf.Quota.ResetDays(),
			LastResetAt: s.now(),
		}
	}
	s.users[userID] = entry
	return entry
}

// persist write-behind，不阻塞呼叫路徑。呼叫端須持有 entry.mu。
func (s *QuotaService) persist(counter model.UsageCounter) {
	if s.store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.Save(ctx, &counter); err != nil {
			s.logger.Warn("persist usage counter failed", zap.String("user", counter.UserID), zap.Error(err))
		}
	}()
}

func (s *QuotaService) toUsageDtoLocked(entry *userQuota) *dto.UsageResponseDto {
	c := entry.counter
	return &dto.UsageResponseDto{
		UserID:         c.UserID,
		Enabled:        c.Enabled,
		Used:           c.Used,
		UsedTotal:      c.UsedTotal,
		UsageLimit:     c.UsageLimit,
		ResetDays:      c.ResetDays,
		LastResetAt:    c.LastResetAt,
		NextResetAt:    c.LastResetAt.Add(time.Duration(c.ResetDays) * 24 * time.Hour),
		DisabledReason: c.DisabledReason,
	}
}
