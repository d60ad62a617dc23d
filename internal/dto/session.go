package dto

import "time"

type SessionResponseDto struct {
	UserID        string    `json:"userID"`
	ClientID      string    `json:"clientID"`
	RemoteIP      string    `json:"remoteIP,omitempty"`
	ConnectedAt   time.Time `json:"connectedAt"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	PoolID        string    `json:"poolID,omitempty"` // 目前綁定的池，未綁定為空
	Provider      string    `json:"provider,omitempty"`
	Admin         bool      `json:"admin"`
}

// 管理端推播給指定用戶（或全體）的通知
type NotifyDto struct {
	UserID  string         `json:"userID,omitempty"` // 省略 = 廣播
	Type    string         `json:"type" binding:"required"`
	Payload map[string]any `json:"payload,omitempty"`
}
