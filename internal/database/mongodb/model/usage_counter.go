package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DisabledReasonUsageLimit 因超額被自動停用；週期重置時會自動恢復
const DisabledReasonUsageLimit = "usage_limit_reached"

// UsageCounter 單一用戶的用量計數，滾動視窗重置
type UsageCounter struct {
	ID             primitive.ObjectID `json:"id" bson:"_id"`
	UserID         string             `json:"userID" bson:"userID"`
	Enabled        bool               `json:"enabled" bson:"enabled"`
	Used           int                `json:"used" bson:"used"`
	UsedTotal      int64              `json:"usedTotal" bson:"usedTotal"` // 終身累計，不重置
	UsageLimit     int                `json:"limit" bson:"usageLimit"`
	ResetDays      int                `json:"resetDays" bson:"resetDays"`
	LastResetAt    time.Time          `json:"lastResetAt" bson:"lastResetAt"`
	DisabledReason string             `json:"disabledReason,omitempty" bson:"disabledReason,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}
