package config

type Session struct {
	// 客戶端心跳間隔（秒），掃描週期為其一半
	HeartbeatIntervalSec int `mapstructure:"HEARTBEAT_INTERVAL_SEC" json:"heartbeat_interval_sec" yaml:"heartbeat_interval_sec"`
	// 心跳逾時倍數：超過 interval * factor 未收到心跳即視為失聯
	HeartbeatTimeoutFactor int `mapstructure:"HEARTBEAT_TIMEOUT_FACTOR" json:"heartbeat_timeout_factor" yaml:"heartbeat_timeout_factor"`
	// 簽章時間戳允許的時鐘偏移（秒）
	AuthSkewSec int64 `mapstructure:"AUTH_SKEW_SEC" json:"auth_skew_sec" yaml:"auth_skew_sec"`
	// 客戶端簽章用的共享鹽值
	AuthSalt string `mapstructure:"AUTH_SALT" json:"auth_salt" yaml:"auth_salt"`
	// 每個連線的發送緩衝長度，滿了就丟棄（不做無上限排隊）
	SendBuffer int `mapstructure:"SEND_BUFFER" json:"send_buffer" yaml:"send_buffer"`
}

// 預設值：60 秒心跳、3 倍逾時、300 秒偏移、緩衝 16
func (s Session) HeartbeatInterval() int {
	if s.HeartbeatIntervalSec <= 0 {
		return 60
	}
	return s.HeartbeatIntervalSec
}

func (s Session) TimeoutFactor() int {
	if s.HeartbeatTimeoutFactor <= 0 {
		return 3
	}
	return s.HeartbeatTimeoutFactor
}

func (s Session) SkewSeconds() int64 {
	if s.AuthSkewSec <= 0 {
		return 300
	}
	return s.AuthSkewSec
}

func (s Session) SendBufferSize() int {
	if s.SendBuffer <= 0 {
		return 16
	}
	return s.SendBuffer
}
