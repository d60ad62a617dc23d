package dto

// 單一池的使用統計
type PoolStatsDto struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	MaxClients     string  `json:"maxClients"` // 不限容量顯示 "∞"
	CurrentClients int     `json:"currentClients"`
	UsageRate      float64 `json:"usageRate"` // 佔用率 %，不限容量恆為 0
	Active         bool    `json:"active"`
}

// 單一供應商彙總
type ProviderStatsDto struct {
	Name           string         `json:"name"`
	DisplayName    string         `json:"displayName"`
	Priority       int            `json:"priority"`
	Active         bool           `json:"active"`
	PoolCount      int            `json:"poolCount"`
	CurrentClients int            `json:"currentClients"`
	Pools          []PoolStatsDto `json:"pools"`
}

// 全系統彙總
type StatsSummaryDto struct {
	Providers      []ProviderStatsDto `json:"providers"`
	TotalProviders int                `json:"totalProviders"`
	TotalPools     int                `json:"totalPools"`
	TotalClients   int                `json:"totalClients"`
	TotalCapacity  int                `json:"totalCapacity"` // 有界池的額定容量總和
	HasUnbounded   bool               `json:"hasUnbounded"`  // 存在不限容量的池
	ActiveSessions int                `json:"activeSessions"`
}
