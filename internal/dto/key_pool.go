package dto

import "time"

// 新增密鑰池
type CreateKeyPoolDto struct {
	ProviderName string `json:"providerName" binding:"required"`
	Name         string `json:"name" binding:"required"`
	APIKey       string `json:"apiKey" binding:"required"`
	MaxClients   int    `json:"maxClients" binding:"gte=-1"` // -1 = 不限
	Active       *bool  `json:"active,omitempty"`
}

// 更新密鑰池（容量 / 啟用旗標）
type UpdateKeyPoolDto struct {
	MaxClients *int  `json:"maxClients,omitempty" binding:"omitempty,gte=-1"`
	Active     *bool `json:"active,omitempty"`
}

type KeyPoolResponseDto struct {
	ID             string    `json:"id"`
	ProviderName   string    `json:"providerName"`
	Name           string    `json:"name"`
	MaxClients     int       `json:"maxClients"`
	CurrentClients int       `json:"currentClients"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// 池健康狀態（佔用明細）
type PoolHealthDto struct {
	ID             string   `json:"id"`
	ProviderName   string   `json:"providerName"`
	Name           string   `json:"name"`
	MaxClients     int      `json:"maxClients"`
	CurrentClients int      `json:"currentClients"`
	Active         bool     `json:"active"`
	ClientIDs      []string `json:"clientIDs"`
}
