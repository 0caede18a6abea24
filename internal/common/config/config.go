// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Service ServiceConfig `mapstructure:"service"`
	Channel ChannelConfig `mapstructure:"channel"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServiceConfig points the client at the platform backend. SubjectID is the
// user the channel is addressed to; when empty the client stays idle until
// one is supplied.
type ServiceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	SubjectID string `mapstructure:"subject_id"`
}

// ChannelConfig holds the connection lifecycle timings. All durations are
// in milliseconds.
type ChannelConfig struct {
	ConnectTimeout       int `mapstructure:"connect_timeout"`
	HeartbeatInterval    int `mapstructure:"heartbeat_interval"`
	ReconnectBaseDelay   int `mapstructure:"reconnect_base_delay"`
	ReconnectMaxDelay    int `mapstructure:"reconnect_max_delay"`
	MaxReconnectAttempts int `mapstructure:"max_reconnect_attempts"`
	ManualReconnectDelay int `mapstructure:"manual_reconnect_delay"`
}

// CacheConfig configures the redis snapshot cache. SnapshotTTL is in
// milliseconds.
type CacheConfig struct {
	Enabled     bool        `mapstructure:"enabled"`
	SnapshotTTL int         `mapstructure:"snapshot_ttl"`
	Redis       RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
