package dto

// 手動輪替動態金鑰（省略 key = 由伺服器隨機產生）
type RotateDynamicKeyDto struct {
	Key string `json:"key,omitempty" binding:"omitempty,min=16"`
}

type DynamicKeyResponseDto struct {
	Key     string `json:"key"`
	Version int64  `json:"version"`
}
