package dto

import (
	"time"

	"keybroker/internal/pkg/request"
)

// 建立 / 覆寫供應商
type UpsertProviderDto struct {
	Name        string `json:"name" binding:"required"`     // 唯一識別碼，建立後不可變
	DisplayName string `json:"displayName,omitempty"`       // 顯示名稱，預設同 name
	BaseURL     string `json:"baseURL" binding:"required,url"`
	Priority    int    `json:"priority" binding:"gte=0"`    // 數字越小越先嘗試
	Active      *bool  `json:"active,omitempty"`            // 省略 = true
}

func (dto UpsertProviderDto) GetMessages() request.ValidatorMessages {
	return request.ValidatorMessages{
		"Name.required":    "供應商識別碼為必填",
		"BaseURL.required": "baseURL 為必填",
		"BaseURL.url":      "baseURL 必須是合法的 URL",
		"Priority.gte":     "priority 不可為負數",
	}
}

type ProviderResponseDto struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	BaseURL     string    `json:"baseURL"`
	Priority    int       `json:"priority"`
	Active      bool      `json:"active"`
	PoolCount   int       `json:"poolCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
