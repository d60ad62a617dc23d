package dto

import "time"

// 管理端調整用戶配額
type UpdateUsageDto struct {
	Enabled    *bool `json:"enabled,omitempty"`
	Used       *int  `json:"used,omitempty" binding:"omitempty,gte=0"`
	UsageLimit *int  `json:"limit,omitempty" binding:"omitempty,gte=0"`
	ResetDays  *int  `json:"resetDays,omitempty" binding:"omitempty,gte=1"`
}

type UsageResponseDto struct {
	UserID         string    `json:"userID"`
	Enabled        bool      `json:"enabled"`
	Used           int       `json:"used"`
	UsedTotal      int64     `json:"usedTotal"`
	UsageLimit     int       `json:"limit"`
	ResetDays      int       `json:"resetDays"`
	LastResetAt    time.Time `json:"lastResetAt"`
	NextResetAt    time.Time `json:"nextResetAt"`
	DisabledReason string    `json:"disabledReason,omitempty"`
}
