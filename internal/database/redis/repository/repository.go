package repository

import (
	"github.com/google/wire"
)

// 統一管理所有 Redis repository
type RedisRepository struct {
	dynamicKeyRepo *DynamicKeyRepository
}

// 建立 Redis repository 物件
func NewRedisRepository(
	dynamicKeyRepo *DynamicKeyRepository,
) *RedisRepository {
	return &RedisRepository{
		dynamicKeyRepo: dynamicKeyRepo,
	}
}

func (repository *RedisRepository) DynamicKey() *DynamicKeyRepository {
	return repository.dynamicKeyRepo
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewDynamicKeyRepository,
	NewRedisRepository)
