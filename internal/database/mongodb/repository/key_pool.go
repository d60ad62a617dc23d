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

type KeyPoolRepository struct {
	collection *mongo.Collection
}

func NewKeyPoolRepository(mongoClient *client.MongoClient) *KeyPoolRepository {
	repository := &KeyPoolRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBKeybroker)).Collection(string(core.MongoCollectionKeyPools)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func (repository *KeyPoolRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{ // 依供應商列池
			Keys:    bson.D{{Key: "providerName", Value: 1}},
			Options: options.Index().SetName("idx_providerName"),
		},
		{ // 同一供應商下憑證不重複
			Keys:    bson.D{{Key: "providerName", Value: 1}, {Key: "apiKey", Value: 1}},
			Options: options.Index().SetName("idx_provider_apiKey_unique").SetUnique(true),
		},
	}
	_, _ = repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return nil
}

// List：全部密鑰池
func (repository *KeyPoolRepository) List(
	contextValue context.Context,
) (_ []*model.KeyPool, returnedError error) {

	cursor, findError := repository.collection.Find(contextValue, bson.M{})
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var pools []*model.KeyPool
	if returnedError = cursor.All(contextValue, &pools); returnedError != nil {
		return nil, returnedError
	}
	return pools, nil
}

// Insert：單文件插入
func (repository *KeyPoolRepository) Insert(
	contextValue context.Context,
	pool *model.KeyPool,
) (_ *model.KeyPool, returnedError error) {

	nowUTC := time.Now().UTC()
	if pool.ID.IsZero() {
		pool.ID = primitive.NewObjectID()
	}
	pool.CreatedAt = nowUTC
	pool.UpdatedAt = nowUTC

	if _, returnedError = repository.collection.InsertOne(contextValue, pool); returnedError != nil {
		return nil, returnedError
	}
	return pool, nil
}

// UpdateByID：容量 / 啟用旗標等部分更新
func (repository *KeyPoolRepository) UpdateByID(
	contextValue context.Context,
	poolIdentifier primitive.ObjectID,
	update bson.M,
) (_ int64, returnedError error) {

	result, updateError := repository.collection.UpdateOne(
		contextValue,
		bson.M{"_id": poolIdentifier},
		withUpdatedAt(bson.M{"$set": update}),
	)
	if updateError != nil {
		return 0, updateError
	}
	return result.MatchedCount, nil
}

// UpdateOccupancy：write-behind 佔用數，僅供管理端顯示
func (repository *KeyPoolRepository) UpdateOccupancy(
	contextValue context.Context,
	poolIdentifier primitive.ObjectID,
	occupancy int,
) (returnedError error) {

	_, returnedError = repository.collection.UpdateOne(
		contextValue,
		bson.M{"_id": poolIdentifier},
		withUpdatedAt(bson.M{"$set": bson.M{"currentClients": occupancy}}),
	)
	return returnedError
}

// CountByProvider：供應商刪除前的引用檢查
func (repository *KeyPoolRepository) CountByProvider(
	contextValue context.Context,
	providerName string,
) (_ int64, returnedError error) {

	return repository.collection.CountDocuments(contextValue, bson.M{"providerName": providerName})
}
