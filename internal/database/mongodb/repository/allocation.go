package repository

import (
	"context"
	"time"

	"keybroker/internal/core"
	client "keybroker/internal/database/client"
	"keybroker/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AllocationRepository struct {
	collection *mongo.Collection
}

func NewAllocationRepository(mongoClient *client.MongoClient) *AllocationRepository {
	repository := &AllocationRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBKeybroker)).Collection(string(core.MongoCollectionAllocations)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func (repository *AllocationRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{ // 依池列稽核
			Keys:    bson.D{{Key: "poolID", Value: 1}, {Key: "allocatedAt", Value: -1}},
			Options: options.Index().SetName("idx_poolID_allocatedAt"),
		},
		{ // 依用戶查綁定
			Keys:    bson.D{{Key: "userID", Value: 1}},
			Options: options.Index().SetName("idx_userID"),
		},
	}
	_, _ = repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return nil
}

// Insert：新增一筆綁定稽核
func (repository *AllocationRepository) Insert(
	contextValue context.Context,
	allocation *model.Allocation,
) (_ *model.Allocation, returnedError error) {

	if allocation.ID.IsZero() {
		allocation.ID = primitive.NewObjectID()
	}
	if allocation.AllocatedAt.IsZero() {
		allocation.AllocatedAt = time.Now().UTC()
	}
	if _, returnedError = repository.collection.InsertOne(contextValue, allocation); returnedError != nil {
		return nil, returnedError
	}
	return allocation, nil
}

// MarkReleased：蓋上釋放時間，紀錄從不刪除
func (repository *AllocationRepository) MarkReleased(
	contextValue context.Context,
	allocationIdentifier primitive.ObjectID,
	releasedAt time.Time,
) (returnedError error) {

	_, returnedError = repository.collection.UpdateOne(
		contextValue,
		bson.M{"_id": allocationIdentifier, "releasedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"releasedAt": releasedAt}},
	)
	return returnedError
}

// ListByPool：管理端稽核列表，可選 poolID 過濾
func (repository *AllocationRepository) ListByPool(
	contextValue context.Context,
	poolID string,
	opts core.ListOptions,
) (_ []*model.Allocation, returnedError error) {

	filter := bson.M{}
	if poolID != "" {
		filter["poolID"] = poolID
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.Size
	if size <= 0 || size > 500 {
		size = 50
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "allocatedAt", Value: -1}}).
		SetSkip((page - 1) * size).
		SetLimit(size)

	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var allocations []*model.Allocation
	if returnedError = cursor.All(contextValue, &allocations); returnedError != nil {
		return nil, returnedError
	}
	return allocations, nil
}
