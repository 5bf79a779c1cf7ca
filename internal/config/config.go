package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the sitewomen server.
type Config struct {
	DBDriver      string
	DBPath        string
	DBDSN         string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	ShutdownGrace time.Duration

	MediaRoot string
	MediaURL  string

	SessionAuthKey string
	SessionEncKey  string
	CSRFKey        string
	CookieSecure   bool

	RateLimit        RateLimitConfig
	CategoryCacheTTL time.Duration
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBDriver         = "sqlite"
	defaultDBPath           = "./data/sitewomen.db"
	defaultServerPort       = 8000
	defaultLogLevel         = "info"
	defaultEnvironment      = "development"
	defaultShutdownGrace    = 10 * time.Second
	defaultMediaRoot        = "./media"
	defaultMediaURL         = "/media/"
	defaultRateLimitBurst   = 60
	defaultRateLimitRPS     = 30
	defaultRateLimitTTL     = 5 * time.Minute
	defaultCategoryCacheTTL = 5 * time.Minute
)

var supportedDrivers = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"mysql":    true,
}

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", defaultDBDriver)),
		DBPath:         getEnv("DB_PATH", defaultDBPath),
		DBDSN:          os.Getenv("DB_DSN"),
		LogLevel:       getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:      os.Getenv("SENTRY_DSN"),
		Environment:    getEnv("ENV", defaultEnvironment),
		ShutdownGrace:  defaultShutdownGrace,
		MediaRoot:      getEnv("MEDIA_ROOT", defaultMediaRoot),
		MediaURL:       getEnv("MEDIA_URL", defaultMediaURL),
		SessionAuthKey: os.Getenv("SESSION_AUTH_KEY"),
		SessionEncKey:  os.Getenv("SESSION_ENC_KEY"),
		CSRFKey:        os.Getenv("CSRF_KEY"),
	}

	if !supportedDrivers[cfg.DBDriver] {
		return nil, eris.Errorf("invalid DB_DRIVER value: %s", cfg.DBDriver)
	}
	if cfg.DBDriver != "sqlite" && strings.TrimSpace(cfg.DBDSN) == "" {
		return nil, eris.Errorf("DB_DSN is required for driver %s", cfg.DBDriver)
	}

	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}

	var err error

	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}
	if cfg.CategoryCacheTTL, err = durationEnv("CATEGORY_CACHE_TTL", defaultCategoryCacheTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := getEnv(key, strconv.FormatBool(fallback))
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, fallback.String())
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}
