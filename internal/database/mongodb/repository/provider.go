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

type ProviderRepository struct {
	collection *mongo.Collection
}

func NewProviderRepository(mongoClient *client.MongoClient) *ProviderRepository {
	repository := &ProviderRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBKeybroker)).Collection(string(core.MongoCollectionProviders)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func (repository *ProviderRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{ // 識別碼唯一
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_name_unique").SetUnique(true),
		},
		{ // 依優先序列目錄
			Keys:    bson.D{{Key: "priority", Value: 1}},
			Options: options.Index().SetName("idx_priority"),
		},
	}
	_, _ = repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return nil
}

// List：全目錄，優先序小者在前
func (repository *ProviderRepository) List(
	contextValue context.Context,
) (_ []*model.Provider, returnedError error) {

	findOptions := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}, {Key: "name", Value: 1}})
	cursor, findError := repository.collection.Find(contextValue, bson.M{}, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var providers []*model.Provider
	if returnedError = cursor.All(contextValue, &providers); returnedError != nil {
		return nil, returnedError
	}
	return providers, nil
}

// Upsert：依識別碼新增或覆寫
func (repository *ProviderRepository) Upsert(
	contextValue context.Context,
	provider *model.Provider,
) (returnedError error) {

	nowUTC := time.Now().UTC()
	if provider.ID.IsZero() {
		provider.ID = primitive.NewObjectID()
	}
	update := withUpdatedAt(bson.M{
		"$set": bson.M{
			"displayName": provider.DisplayName,
			"baseURL":     provider.BaseURL,
			"priority":    provider.Priority,
			"active":      provider.Active,
		},
		"$setOnInsert": bson.M{
			"_id":       provider.ID,
			"name":      provider.Name,
			"createdAt": nowUTC,
		},
	})
	_, returnedError = repository.collection.UpdateOne(
		contextValue,
		bson.M{"name": provider.Name},
		update,
		options.Update().SetUpsert(true),
	)
	return returnedError
}

// DeleteByName：硬刪除目錄項（上層已確認無密鑰池引用）
func (repository *ProviderRepository) DeleteByName(
	contextValue context.Context,
	name string,
) (returnedError error) {

	_, returnedError = repository.collection.DeleteOne(contextValue, bson.M{"name": name})
	return returnedError
}
