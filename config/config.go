package config

type Configuration struct {
	App       App             `mapstructure:"APP" json:"app" yaml:"app"`
	Log       Log             `mapstructure:"LOG" json:"log" yaml:"log"`
	Redis     Redis           `mapstructure:"REDIS" json:"redis" yaml:"redis"`
	MongoDB   MongoDB         `mapstructure:"MONGODB" json:"mongodb" yaml:"mongodb"`
	Fluentd   Fluentd         `mapstructure:"FLUENTD" yaml:"fluentd"`
	Telemetry TelemetryConfig `mapstructure:"TELEMETRY" yaml:"telemetry"`
	Session   Session         `mapstructure:"SESSION" json:"session" yaml:"session"`
	Quota     Quota           `mapstructure:"QUOTA" json:"quota" yaml:"quota"`
	KeyPool   KeyPool         `mapstructure:"KEY_POOL" json:"keyPool" yaml:"keyPool"`
}
