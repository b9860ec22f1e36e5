package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

type BridgeConfig struct {
	URL          string        `yaml:"url"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
}

type EngineConfig struct {
	// Dismissal fallback tuning.
	MinConfidence  int           `yaml:"min_confidence"`
	FallbackWindow time.Duration `yaml:"fallback_window"`

	// Alert rate limiting.
	AlertWindow time.Duration `yaml:"alert_window"`
	AlertLimit  int           `yaml:"alert_limit"`
	AlertEmail  string        `yaml:"alert_email"`

	// Action definition cache.
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	CacheCleanup time.Duration `yaml:"cache_cleanup"`
}

type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type ReconcilerConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
	GracePeriod  time.Duration `yaml:"grace_period"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Engine     EngineConfig     `yaml:"engine"`
	Email      EmailConfig      `yaml:"email"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitoring struct {
		PrometheusEnabled bool   `yaml:"prometheus_enabled"`
		MetricsPath       string `yaml:"metrics_path"`
	} `yaml:"monitoring"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/app/config")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	// Environment overrides for containerized deployments.
	if host := os.Getenv("DB_HOST"); host != "" {
		config.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		config.Database.Port, _ = strconv.Atoi(port)
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		config.Database.Password = password
	}
	if url := os.Getenv("BRIDGE_URL"); url != "" {
		config.Bridge.URL = url
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Engine.MinConfidence == 0 {
		config.Engine.MinConfidence = 70
	}
	if config.Engine.FallbackWindow == 0 {
		config.Engine.FallbackWindow = 2 * time.Hour
	}
	if config.Engine.AlertWindow == 0 {
		config.Engine.AlertWindow = 5 * time.Minute
	}
	if config.Engine.AlertLimit == 0 {
		config.Engine.AlertLimit = 3
	}
	if config.Engine.CacheTTL == 0 {
		config.Engine.CacheTTL = 15 * time.Minute
	}
	if config.Engine.CacheCleanup == 0 {
		config.Engine.CacheCleanup = time.Hour
	}
	if config.Reconciler.BatchSize == 0 {
		config.Reconciler.BatchSize = 100
	}
	if config.Reconciler.PollInterval == 0 {
		config.Reconciler.PollInterval = 5 * time.Minute
	}
	if config.Reconciler.GracePeriod == 0 {
		config.Reconciler.GracePeriod = 24 * time.Hour
	}
}
