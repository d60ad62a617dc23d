package database

import (
	client "keybroker/internal/database/client"
	fluentdRepo "keybroker/internal/database/fluentd/repository"
	mongoRepo "keybroker/internal/database/mongodb/repository"
	redisRepo "keybroker/internal/database/redis/repository"

	"github.com/google/wire"
)

// ProviderSet 定義所有 DB Client 的依賴
var ProviderSet = wire.NewSet(
	client.NewMongoClient,
	client.NewRedisClient,
	client.NewFluentdClient,
	mongoRepo.ProviderSet,
	redisRepo.ProviderSet,
	fluentdRepo.ProviderSet,
)
