package repository

import (
	"github.com/google/wire"
	"go.mongodb.org/mongo-driver/bson"
)

// 統一管理所有 MongoDB repository
type MongoDBRepository struct {
	providerRepo   *ProviderRepository
	keyPoolRepo    *KeyPoolRepository
	allocationRepo *AllocationRepository
	usageRepo      *UsageCounterRepository
}

// 建立 MongoDB repository 物件
func NewMongoDBRepository(
	providerRepo *ProviderRepository,
	keyPoolRepo *KeyPoolRepository,
	allocationRepo *AllocationRepository,
	usageRepo *UsageCounterRepository,
) *MongoDBRepository {
	return &MongoDBRepository{
		providerRepo:   providerRepo,
		keyPoolRepo:    keyPoolRepo,
		allocationRepo: allocationRepo,
		usageRepo:      usageRepo,
	}
}

// Wire 依賴提供
var ProviderSet = wire.NewSet(
	NewProviderRepository,
	NewKeyPoolRepository,
	NewAllocationRepository,
	NewUsageCounterRepository,
	NewMongoDBRepository)

func withUpdatedAt(update bson.M) bson.M {
	// 確保 $currentDate 存在
	currentDate, ok := update["$currentDate"].(bson.M)
	if !ok || currentDate == nil {
		currentDate = bson.M{}
	}
	currentDate["updatedAt"] = true
	update["$currentDate"] = currentDate
	return update
}
