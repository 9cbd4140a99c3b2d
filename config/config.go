package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Nakama   NakamaConfig   `mapstructure:"nakama"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// NakamaConfig points the game client at the Nakama backend.
type NakamaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	HTTPKey string        `mapstructure:"http_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProxyConfig holds upstream endpoints and server-held API keys.
// Keys are never shipped to mobile clients; the proxy injects them.
type ProxyConfig struct {
	OpenRouterURL   string        `mapstructure:"openrouter_url"`
	OpenRouterKey   string        `mapstructure:"openrouter_key"`
	PlacesURL       string        `mapstructure:"places_url"`
	PlacesKey       string        `mapstructure:"places_key"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	PlacesCacheTTL  time.Duration `mapstructure:"places_cache_ttl"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
}

type AuditConfig struct {
	Mode          string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath    string        `mapstructure:"sqlite_path"`
	MySQLDSN      string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen  int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle  int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife  time.Duration `mapstructure:"mysql_max_life"`
	RetentionDays int           `mapstructure:"retention_days"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	// AllowedOrigins lists the CORS origins that are permitted.
	// An empty slice allows all origins (the mobile WebView has no stable origin).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.debug", false)
	v.SetDefault("nakama.base_url", "http://127.0.0.1:7350")
	v.SetDefault("nakama.timeout", "10s")
	v.SetDefault("proxy.openrouter_url", "https://openrouter.ai/api/v1/chat/completions")
	v.SetDefault("proxy.places_url", "https://places.googleapis.com/v1/places:searchText")
	v.SetDefault("proxy.upstream_timeout", "30s")
	v.SetDefault("proxy.places_cache_ttl", "60s")
	v.SetDefault("proxy.max_body_bytes", 1<<20)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("audit.mode", "sqlite")
	v.SetDefault("audit.sqlite_path", "./data/audit.db")
	v.SetDefault("audit.mysql_max_open", 50)
	v.SetDefault("audit.mysql_max_idle", 10)
	v.SetDefault("audit.mysql_max_life", "1h")
	v.SetDefault("audit.retention_days", 30)
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
