package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	I18n       I18nConfig       `mapstructure:"i18n"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// UpstreamConfig describes the chat-completions endpoint used for generation.
// APIKey is intentionally not validated at load time: its absence is a runtime
// condition surfaced to callers as a 503.
type UpstreamConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Store       string        `mapstructure:"store"`
	TTL         time.Duration `mapstructure:"ttl"`
	SweepChance float64       `mapstructure:"sweep_chance"`
	Redis       RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
	GlobalRPS   float64       `mapstructure:"global_rps"`
	GlobalBurst int           `mapstructure:"global_burst"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// Enable environment variable substitution
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Set environment variable overrides
	viper.BindEnv("upstream.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("cache.redis.addr", "REDIS_ADDR")
	viper.BindEnv("cache.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Must cover the worst case: three upstream attempts plus backoff.
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = 15 * time.Second
	}
	if cfg.Upstream.MaxAttempts == 0 {
		cfg.Upstream.MaxAttempts = 3
	}
	if cfg.Upstream.Temperature == 0 {
		cfg.Upstream.Temperature = 1.0
	}
	if cfg.Upstream.TopP == 0 {
		cfg.Upstream.TopP = 0.9
	}
	if cfg.Upstream.MaxTokens == 0 {
		cfg.Upstream.MaxTokens = 500
	}
	if cfg.Cache.Store == "" {
		cfg.Cache.Store = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Cache.SweepChance == 0 {
		cfg.Cache.SweepChance = 0.1
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 10
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = time.Minute
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.I18n.DefaultLanguage == "" {
		cfg.I18n.DefaultLanguage = "en"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base_url is required")
	}
	if cfg.Upstream.Model == "" {
		return fmt.Errorf("upstream model is required")
	}
	if cfg.Cache.Store != "memory" && cfg.Cache.Store != "redis" {
		return fmt.Errorf("unsupported cache store: %s", cfg.Cache.Store)
	}
	return nil
}
