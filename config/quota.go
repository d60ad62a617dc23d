package config

type Quota struct {
	// 新用戶的預設可用次數
	DefaultLimit int `mapstructure:"DEFAULT_LIMIT" json:"default_limit" yaml:"default_limit"`
	// 重置週期（天），滾動視窗
	DefaultResetDays int `mapstructure:"DEFAULT_RESET_DAYS" json:"default_reset_days" yaml:"default_reset_days"`
}

func (q Quota) Limit() int {
	if q.DefaultLimit <= 0 {
		return 1000
	}
	return q.DefaultLimit
}

func (q Quota) ResetDays() int {
	if q.DefaultResetDays <= 0 {
		return 30
	}
	return q.DefaultResetDays
}
