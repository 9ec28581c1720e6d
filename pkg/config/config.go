package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendNone     = "none"
)

// Fetch modes selectable through FETCH_MODE.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFormat  string `mapstructure:"LOG_FORMAT"`

	ProfileUsername    string        `mapstructure:"PROFILE_USERNAME"`
	ProfileURLTemplate string        `mapstructure:"PROFILE_URL_TEMPLATE"`
	StalenessThreshold time.Duration `mapstructure:"STALENESS_THRESHOLD"`
	RefreshSchedule    string        `mapstructure:"REFRESH_SCHEDULE"`
	SchedulerEnabled   bool          `mapstructure:"SCHEDULER_ENABLED"`
	RefreshOnStart     bool          `mapstructure:"REFRESH_ON_START"`
	MonitoredMetrics   []string      `mapstructure:"MONITORED_METRICS"`

	SeedFollowers int64 `mapstructure:"SEED_FOLLOWERS"`
	SeedFollowing int64 `mapstructure:"SEED_FOLLOWING"`
	SeedPosts     int64 `mapstructure:"SEED_POSTS"`

	HistoryCap int `mapstructure:"HISTORY_CAP"`
	EventsCap  int `mapstructure:"EVENTS_CAP"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	DBPath        string `mapstructure:"DB_PATH"`
	PostgresURL   string `mapstructure:"POSTGRES_URL"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPrefix   string `mapstructure:"REDIS_PREFIX"`

	FetchMode               string        `mapstructure:"FETCH_MODE"`
	FetchTimeout            time.Duration `mapstructure:"FETCH_TIMEOUT"`
	FetchMinInterval        time.Duration `mapstructure:"FETCH_MIN_INTERVAL"`
	BreakerFailureThreshold uint          `mapstructure:"BREAKER_FAILURE_THRESHOLD"`
	BreakerDelay            time.Duration `mapstructure:"BREAKER_DELAY"`
	ProxyURLs               []string      `mapstructure:"PROXY_URLS"`
	UserAgents              []string      `mapstructure:"USER_AGENTS"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return load(viper.New(), ".env")
}

func load(v *viper.Viper, envFile string) (*Config, error) {
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = v.ReadInConfig()

	// Set default values
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("PROFILE_USERNAME", "_isnehasahu_")
	v.SetDefault("PROFILE_URL_TEMPLATE", "https://www.instagram.com/%s/")
	v.SetDefault("STALENESS_THRESHOLD", "5m")
	v.SetDefault("REFRESH_SCHEDULE", "*/5 * * * *")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("REFRESH_ON_START", true)
	v.SetDefault("MONITORED_METRICS", "followers,following")
	v.SetDefault("SEED_FOLLOWERS", 547)
	v.SetDefault("SEED_FOLLOWING", 513)
	v.SetDefault("SEED_POSTS", 0)
	v.SetDefault("HISTORY_CAP", 500)
	v.SetDefault("EVENTS_CAP", 100)
	v.SetDefault("STORE_BACKEND", BackendFile)
	v.SetDefault("DB_PATH", "database.json")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_PREFIX", "tracker")
	v.SetDefault("FETCH_MODE", FetchModeHTTP)
	v.SetDefault("FETCH_TIMEOUT", "20s")
	v.SetDefault("FETCH_MIN_INTERVAL", "30s")
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 3)
	v.SetDefault("BREAKER_DELAY", "2m")
	v.SetDefault("PROXY_URLS", "")
	v.SetDefault("USER_AGENTS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.MonitoredMetrics = compact(cfg.MonitoredMetrics)
	cfg.ProxyURLs = compact(cfg.ProxyURLs)
	cfg.UserAgents = compact(cfg.UserAgents)
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.FetchMode = strings.ToLower(strings.TrimSpace(cfg.FetchMode))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ProfileUsername) == "" {
		errs = append(errs, errors.New("PROFILE_USERNAME is required"))
	}
	if strings.Count(c.ProfileURLTemplate, "%s") != 1 {
		errs = append(errs, fmt.Errorf("PROFILE_URL_TEMPLATE must contain exactly one %%s, got %q", c.ProfileURLTemplate))
	}
	if c.StalenessThreshold <= 0 {
		errs = append(errs, errors.New("STALENESS_THRESHOLD must be positive"))
	}
	if c.HistoryCap <= 0 || c.EventsCap <= 0 {
		errs = append(errs, errors.New("HISTORY_CAP and EVENTS_CAP must be positive"))
	}
	if c.SeedFollowers < 0 || c.SeedFollowing < 0 || c.SeedPosts < 0 {
		errs = append(errs, errors.New("seed counts must not be negative"))
	}
	switch c.StoreBackend {
	case BackendFile, BackendPostgres, BackendRedis, BackendMemory, BackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.FetchMode {
	case FetchModeHTTP, FetchModeBrowser:
	default:
		errs = append(errs, fmt.Errorf("unknown FETCH_MODE %q", c.FetchMode))
	}
	return errors.Join(errs...)
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		for _, part := range strings.Split(it, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
