package repository

import (
	"context"
	"fmt"
	"strconv"

	"keybroker/internal/core"
	client "keybroker/internal/database/client"
	"keybroker/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

type DynamicKeyRepository struct {
	trace  *telemetry.Trace
	client *redis.Client
}

func NewDynamicKeyRepository(trace *telemetry.Trace, client *client.RedisClient) *DynamicKeyRepository {
	return &DynamicKeyRepository{trace: trace, client: client.Client()}
}

// Load 讀取目前動態金鑰與版本。尚未初始化時回傳 ("", 0, nil)。
func (repository *DynamicKeyRepository) Load(
	contextValue context.Context,
) (keyValue string, version int64, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	traceMetadata := core.TraceDynamicKeyMeta{Op: "load"}
	repository.trace.ApplyTraceAttributes(span, traceMetadata)

	// 用 pipeline 併發 GET value + version 減少往返
	pipeline := repository.client.Pipeline()
	valueCommand := pipeline.Get(contextValue, repository.buildKey("value"))
	versionCommand := pipeline.Get(contextValue, repository.buildKey("version"))
	if _, execError := pipeline.Exec(contextValue); execError != nil && execError != redis.Nil {
		returnedError = execError
		return "", 0, returnedError
	}

	keyValue, valueError := valueCommand.Result()
	if valueError == redis.Nil {
		return "", 0, nil
	}
	if valueError != nil {
		returnedError = valueError
		return "", 0, returnedError
	}

	versionRaw, versionError := versionCommand.Result()
	if versionError != nil && versionError != redis.Nil {
		returnedError = versionError
		return "", 0, returnedError
	}
	version, _ = strconv.ParseInt(versionRaw, 10, 64)

	traceMetadata.Version = version
	repository.trace.ApplyTraceAttributes(span, traceMetadata)
	return keyValue, version, nil
}

// Save 寫入新的動態金鑰並遞增版本。回傳新版本號。
func (repository *DynamicKeyRepository) Save(
	contextValue context.Context,
	keyValue string,
) (version int64, returnedError error) {

	contextValue, span, endSpan := repository.trace.WithSpan(contextValue)
	defer func() { endSpan(returnedError) }()

	traceMetadata := core.TraceDynamicKeyMeta{Op: "save"}
	repository.trace.ApplyTraceAttributes(span, traceMetadata)

	if returnedError = repository.client.Set(contextValue, repository.buildKey("value"), keyValue, 0).Err(); returnedError != nil {
		return 0, returnedError
	}
	version, returnedError = repository.client.Incr(contextValue, repository.buildKey("version")).Result()
	if returnedError != nil {
		return 0, returnedError
	}

	traceMetadata.Version = version
	repository.trace.ApplyTraceAttributes(span, traceMetadata)
	return version, nil
}

// buildKey 建構動態金鑰用的 Redis key
func (r *DynamicKeyRepository) buildKey(field string) string {
	return fmt.Sprintf("%s:%s:%s", core.RedisKeyServerName, core.RedisKeyDynamicKey, field)
}
