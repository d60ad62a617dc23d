package core

// SessionState 已登記會話的狀態。認證在登記之前完成：
// 簽章驗過身份才建立 Session，所以註冊表裡只有 Active / Closed 兩態。
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionClosed SessionState = "closed"
)

// MessageType 連線協議的訊息類型（JSON envelope 的 type 欄位）
type MessageType string

const (
	// client → server
	MessageAuth      MessageType = "auth"
	MessageHeartbeat MessageType = "heartbeat"
	MessageAllocate  MessageType = "allocate"
	MessageRelease   MessageType = "release"
	MessagePing      MessageType = "ping"

	// server → client
	MessageWelcome      MessageType = "welcome"
	MessageAllocated    MessageType = "allocated"
	MessageReleased     MessageType = "released"
	MessageError        MessageType = "error"
	MessagePong         MessageType = "pong"
	MessageHeartbeatAck MessageType = "heartbeat_ack"
	MessageUserUpdate   MessageType = "user_update"
	MessageUserDelete   MessageType = "user_delete"
)

// ErrorKind 連線協議 error envelope 的 kind 欄位
type ErrorKind string

const (
	KindAuthInvalid       ErrorKind = "auth-invalid"
	KindPoolExhausted     ErrorKind = "pool-exhausted"
	KindAllPoolsExhausted ErrorKind = "all-pools-exhausted"
	KindQuotaExceeded     ErrorKind = "quota-exceeded"
	KindAccessDisabled    ErrorKind = "access-disabled"
	KindSessionEvicted    ErrorKind = "session-evicted"
	KindBadRequest        ErrorKind = "bad-request"
)

// AuthType 客戶端簽章用途：原始字串 = 時間戳 + userID + salt + 用途
type AuthType string

const (
	AuthTypeConnection AuthType = "connection"
	AuthTypeHeartbeat  AuthType = "heartbeat"
)

// CloseReason 會話關閉的內部原因（觀測用）
type CloseReason string

const (
	CloseByClient      CloseReason = "client_disconnect"
	CloseByEviction    CloseReason = "evicted"
	CloseByTimeout     CloseReason = "heartbeat_timeout"
	CloseByAuthFailure CloseReason = "auth_failure"
	CloseByShutdown    CloseReason = "shutdown"
)
