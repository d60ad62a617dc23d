package core

import "go.mongodb.org/mongo-driver/bson"

// ─── Database Types ────────────────────────────────────────────────────────────

type MongoDatabaseName string
type MongoCollection string
type RedisKey string
type FluentdSubTag string

// ─── MongoDB ───────────────────────────────────────────────────────────────────
const (
	MongoDBKeybroker MongoDatabaseName = "keybroker"
)

// MongoDB collections
const (
	MongoCollectionProviders     MongoCollection = "keybroker_providers"
	MongoCollectionKeyPools      MongoCollection = "keybroker_key_pools"
	MongoCollectionAllocations   MongoCollection = "keybroker_allocations"
	MongoCollectionUsageCounters MongoCollection = "keybroker_usage_counters"
)

// ─── Redis Keys ────────────────────────────────────────────────────────────────

const (
	RedisKeyServerName RedisKey = "keybroker" // 伺服器命名空間
	RedisKeyDynamicKey RedisKey = "dynamic_key"
)

const (
	FluentdSessionEvent    FluentdSubTag = "session_event_log"
	FluentdAllocationEvent FluentdSubTag = "allocation_event_log"
)

type ListOptions struct {
	Filter bson.M `json:"filter,omitempty" bson:"filter,omitempty"`
	Page   int64  `json:"page,omitempty" bson:"page,omitempty"`
	Size   int64  `json:"size,omitempty" bson:"size,omitempty"`
}
