package model

// SessionEventLog 會話生命週期事件（admitted / evicted / closed / heartbeat_timeout）
type SessionEventLog struct {
	Event    string `bson:"event" json:"event"`
	UserID   string `bson:"user_id" json:"user_id"`
	ClientID string `bson:"client_id,omitempty" json:"client_id,omitempty"`
	Reason   string `bson:"reason,omitempty" json:"reason,omitempty"`
	RemoteIP string `bson:"remote_ip,omitempty" json:"remote_ip,omitempty"`
	Version  string `bson:"version,omitempty" json:"version,omitempty"`
	EventTS  string `bson:"event_ts" json:"event_ts"`
	LoggedAt string `bson:"logged_at" json:"logged_at"`
}

// AllocationEventLog 密鑰綁定事件（allocated / released / rejected）
type AllocationEventLog struct {
	Event    string `bson:"event" json:"event"`
	UserID   string `bson:"user_id" json:"user_id"`
	ClientID string `bson:"client_id,omitempty" json:"client_id,omitempty"`
	Provider string `bson:"provider,omitempty" json:"provider,omitempty"`
	PoolID   string `bson:"pool_id,omitempty" json:"pool_id,omitempty"`
	Reason   string `bson:"reason,omitempty" json:"reason,omitempty"`
	Version  string `bson:"version,omitempty" json:"version,omitempty"`
	EventTS  string `bson:"event_ts" json:"event_ts"`
	LoggedAt string `bson:"logged_at" json:"logged_at"`
}
