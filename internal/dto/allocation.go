package dto

import "time"

type AllocationResponseDto struct {
	ID           string     `json:"id"`
	PoolID       string     `json:"poolID"`
	ProviderName string     `json:"providerName"`
	UserID       string     `json:"userID"`
	ClientID     string     `json:"clientID"`
	AllocatedAt  time.Time  `json:"allocatedAt"`
	ReleasedAt   *time.Time `json:"releasedAt,omitempty"`
}

// 分配結果（回給客戶端的 allocated envelope payload）
type AllocationGrantDto struct {
	Provider   string `json:"provider"`
	BaseURL    string `json:"baseURL"`
	APIKey     string `json:"apiKey"`
	AuthHeader string `json:"authHeader"` // 客戶端呼叫上游時應帶的授權標頭名稱
	AuthValue  string `json:"authValue"`  // 標頭值，依供應商慣例組好
	PoolID     string `json:"poolID"`
}
