package service

import (
	"context"
	"strings"
	"sync"

	"keybroker/internal/database/redis/repository"
	"keybroker/internal/dto"
	cErr "keybroker/internal/pkg/error"
	"keybroker/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DynamicKeyStore 動態金鑰的持久層（跨行程共享目前值與版本）
type DynamicKeyStore interface {
	Load(ctx context.Context) (key string, version int64, err error)
	Save(ctx context.Context, key string) (version int64, err error)
}

// DynamicKeyService 全域輪替金鑰：單一版本化值 + 讀鎖，不做環境全域變數
type DynamicKeyService struct {
	trace  *telemetry.Trace
	logger *zap.Logger
	store  DynamicKeyStore

	mu      sync.RWMutex
	key     string
	version int64
}

func NewDynamicKeyService(trace *telemetry.Trace, logger *zap.Logger, redisRepo *repository.RedisRepository) *DynamicKeyService {
	return &DynamicKeyService{trace: trace, logger: logger, store: redisRepo.DynamicKey()}
}

// NewDynamicKeyServiceWithStore 測試用建構子（nil store = 純記憶體）
func NewDynamicKeyServiceWithStore(trace *telemetry.Trace, logger *zap.Logger, store DynamicKeyStore) *DynamicKeyService {
	return &DynamicKeyService{trace: trace, logger: logger, store: store}
}

// LoadFromStore 啟動時載回上次輪替的金鑰
func (s *DynamicKeyService) LoadFromStore(ctx context.Context) error {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if s.store == nil {
		return nil
	}
	key, version, err := s.store.Load(ctx)
	if err != nil {
		return cErr.DatabaseError("load dynamic key error")
	}
	s.mu.Lock()
	s.key = key
	s.version = version
	s.mu.Unlock()
	return nil
}

// Current 目前金鑰與版本。尚未輪替過時金鑰為空字串。
func (s *DynamicKeyService) Current() (string, int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, s.version
}

// Rotate 輪替金鑰並遞增版本。key 為空時由伺服器隨機產生。
func (s *DynamicKeyService) Rotate(ctx context.Context, key string) (*dto.DynamicKeyResponseDto, error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer end(nil)

	if key == "" {
		key = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.version + 1
	if s.store != nil {
		saved, err := s.store.Save(ctx, key)
		if err != nil {
			return nil, cErr.DatabaseError("save dynamic key error")
		}
		version = saved
	}
	s.key = key
	s.version = version
	s.logger.Info("dynamic key rotated", zap.Int64("version", version))
	return &dto.DynamicKeyResponseDto{Key: key, Version: version}, nil
}
