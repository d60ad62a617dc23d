package config

// KeyPool 啟動種子目錄：由部署環境提供的供應商與憑證清單。
// 只在 seed 指令或首次啟動匯入，之後以資料庫與管理端為準。
type KeyPool struct {
	Providers []ProviderSeed `mapstructure:"PROVIDERS" json:"providers" yaml:"providers"`
}

type ProviderSeed struct {
	Name        string   `mapstructure:"NAME" json:"name" yaml:"name"`
	DisplayName string   `mapstructure:"DISPLAY_NAME" json:"display_name" yaml:"display_name"`
	BaseURL     string   `mapstructure:"BASE_URL" json:"base_url" yaml:"base_url"`
	Priority    int      `mapstructure:"PRIORITY" json:"priority" yaml:"priority"`
	// -1 表示不限併發客戶端數
	MaxClients int      `mapstructure:"MAX_CLIENTS" json:"max_clients" yaml:"max_clients"`
	Keys       []string `mapstructure:"KEYS" json:"keys" yaml:"keys"`
}
