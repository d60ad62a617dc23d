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

type UsageCounterRepository struct {
	collection *mongo.Collection
}

func NewUsageCounterRepository(mongoClient *client.MongoClient) *UsageCounterRepository {
	repository := &UsageCounterRepository{
		collection: mongoClient.Client().Database(string(core.MongoDBKeybroker)).Collection(string(core.MongoCollectionUsageCounters)),
	}
	_ = repository.ensureIndexes(context.Background())
	return repository
}

func (repository *UsageCounterRepository) ensureIndexes(contextValue context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userID", Value: 1}},
			Options: options.Index().SetName("idx_userID_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "enabled", Value: 1}},
			Options: options.Index().SetName("idx_enabled"),
		},
	}
	_, _ = repository.collection.Indexes().CreateMany(contextValue, indexModels)
	return nil
}

// GetByUserID：單文件讀取
func (repository *UsageCounterRepository) GetByUserID(
	contextValue context.Context,
	userID string,
) (_ *model.UsageCounter, returnedError error) {

	var counter model.UsageCounter
	if returnedError = repository.collection.FindOne(contextValue, bson.M{"userID": userID}).Decode(&counter); returnedError != nil {
		return nil, returnedError
	}
	return &counter, nil
}

// Save：write-behind 整份覆寫（以 userID upsert）
func (repository *UsageCounterRepository) Save(
	contextValue context.Context,
	counter *model.UsageCounter,
) (returnedError error) {

	nowUTC := time.Now().UTC()
	if counter.ID.IsZero() {
		counter.ID = primitive.NewObjectID()
	}
	update := withUpdatedAt(bson.M{
		"$set": bson.M{
			"enabled":        counter.Enabled,
			"used":           counter.Used,
			"usedTotal":      counter.UsedTotal,
			"usageLimit":     counter.UsageLimit,
			"resetDays":      counter.ResetDays,
			"lastResetAt":    counter.LastResetAt,
			"disabledReason": counter.DisabledReason,
		},
		"$setOnInsert": bson.M{
			"_id":       counter.ID,
			"userID":    counter.UserID,
			"createdAt": nowUTC,
		},
	})
	_, returnedError = repository.collection.UpdateOne(
		contextValue,
		bson.M{"userID": counter.UserID},
		update,
		options.Update().SetUpsert(true),
	)
	return returnedError
}

// List：管理端列舉
func (repository *UsageCounterRepository) List(
	contextValue context.Context,
	opts core.ListOptions,
) (_ []*model.UsageCounter, returnedError error) {

	filter := opts.Filter
	if filter == nil {
		filter = bson.M{}
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.Size
	if size <= 0 || size > 500 {
		size = 100
	}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "userID", Value: 1}}).
		SetSkip((page - 1) * size).
		SetLimit(size)

	cursor, findError := repository.collection.Find(contextValue, filter, findOptions)
	if findError != nil {
		return nil, findError
	}
	defer cursor.Close(contextValue)

	var counters []*model.UsageCounter
	if returnedError = cursor.All(contextValue, &counters); returnedError != nil {
		return nil, returnedError
	}
	return counters, nil
}
