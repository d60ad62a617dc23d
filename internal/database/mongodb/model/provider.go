package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Provider 上游 AI 供應商目錄項
type Provider struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	Name        string             `json:"name" bson:"name"`               // 唯一識別碼，建立後不可變
	DisplayName string             `json:"displayName" bson:"displayName"` // 顯示名稱
	BaseURL     string             `json:"baseURL" bson:"baseURL"`         // 上游 API base URL
	Priority    int                `json:"priority" bson:"priority"`       // 數字越小越先嘗試
	Active      bool               `json:"active" bson:"active"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}
