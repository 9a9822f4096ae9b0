package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MUNZI"

type Config struct {
	Profile   string          `mapstructure:"profile"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	APILog    APILogConfig    `mapstructure:"api_log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// APILogConfig controls which traffic gets logged and how.
// Route patterns are "METHOD /path" strings, optionally ending in '*'.
type APILogConfig struct {
	// ServerName is required; it prefixes the applicationName log field.
	ServerName         string   `mapstructure:"server_name"`
	IgnoreSecurityLog  bool     `mapstructure:"ignore_security_log"`
	Use                bool     `mapstructure:"use"`
	JSONPretty         bool     `mapstructure:"json_pretty"`
	RequestIDHeaderKey string   `mapstructure:"request_id_header_key"`
	StackTracePrintYn  bool     `mapstructure:"stack_trace_print_yn"`
	DebugAPI           []string `mapstructure:"debug_api"`

	Request  TrafficConfig `mapstructure:"request"`
	Response TrafficConfig `mapstructure:"response"`
}

type TrafficConfig struct {
	MaxBodySize string   `mapstructure:"max_body_size"` // e.g. "1KB", "2 MB"
	SecretAPI   []string `mapstructure:"secret_api"`
	InactiveAPI []string `mapstructure:"inactive_api"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type StoreConfig struct {
	Type     string `mapstructure:"type"` // memory, postgres, oracle, couchbase, mongodb
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	Pool     struct {
		MaxConns int `mapstructure:"max_conns"`
		MinConns int `mapstructure:"min_conns"`
	} `mapstructure:"pool"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`

	// Per route limits, matched like api_log patterns
	Routes []RouteLimit `mapstructure:"routes"`

	Storage struct {
		Type  string `mapstructure:"type"` // memory or redis
		Redis struct {
			Host     string        `mapstructure:"host"`
			Port     int           `mapstructure:"port"`
			Password string        `mapstructure:"password"`
			DB       int           `mapstructure:"db"`
			Timeout  time.Duration `mapstructure:"timeout"`
		} `mapstructure:"redis"`
	} `mapstructure:"storage"`
}

type RouteLimit struct {
	Pattern  string        `mapstructure:"pattern"` // "GET /hello*"
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("profile", "local")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("api_log.server_name", "")
	v.SetDefault("api_log.ignore_security_log", false)
	v.SetDefault("api_log.use", false)
	v.SetDefault("api_log.json_pretty", false)
	v.SetDefault("api_log.request_id_header_key", "")
	v.SetDefault("api_log.stack_trace_print_yn", false)
	v.SetDefault("api_log.request.max_body_size", "1KB")
	v.SetDefault("api_log.response.max_body_size", "1KB")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "munzi")

	v.SetDefault("store.type", "memory")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.storage.type", "memory")
	v.SetDefault("rate_limit.storage.redis.port", 6379)
	v.SetDefault("rate_limit.storage.redis.timeout", 5*time.Second)
}

// LoadConfig reads the YAML file at configPath and applies MUNZI_*
// environment overrides (api_log.server_name -> MUNZI_API_LOG_SERVER_NAME).
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath)))
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Dir(configPath))
	v.SetConfigFile(configPath)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &config, nil
}
