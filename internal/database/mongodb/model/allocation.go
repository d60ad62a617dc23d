package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Allocation 一次密鑰綁定的稽核紀錄。只新增與蓋上釋放時間，從不刪除。
type Allocation struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	PoolID       string             `json:"poolID" bson:"poolID"`
	ProviderName string             `json:"providerName" bson:"providerName"`
	UserID       string             `json:"userID" bson:"userID"`
	ClientID     string             `json:"clientID" bson:"clientID"`
	AllocatedAt  time.Time          `json:"allocatedAt" bson:"allocatedAt"`
	ReleasedAt   *time.Time         `json:"releasedAt,omitempty" bson:"releasedAt,omitempty"`
}
