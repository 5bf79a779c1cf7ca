package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"DB_DRIVER", "DB_PATH", "DB_DSN", "SERVER_PORT", "LOG_LEVEL", "SENTRY_DSN", "ENV",
		"MEDIA_ROOT", "MEDIA_URL", "SESSION_AUTH_KEY", "SESSION_ENC_KEY", "CSRF_KEY",
		"COOKIE_SECURE", "RATE_LIMIT_BURST", "RATE_LIMIT_RPS", "RATE_LIMIT_TTL", "CATEGORY_CACHE_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBDriver != defaultDBDriver {
		t.Errorf("expected default driver %q, got %q", defaultDBDriver, cfg.DBDriver)
	}

	if cfg.DBPath != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DBPath)
	}

	if cfg.ServerPort != defaultServerPort {
		t.Errorf("expected default server port %d, got %d", defaultServerPort, cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.MediaURL != defaultMediaURL {
		t.Errorf("expected media url %q, got %q", defaultMediaURL, cfg.MediaURL)
	}

	if cfg.RateLimit.Burst != defaultRateLimitBurst || cfg.RateLimit.ClientTTL != defaultRateLimitTTL {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}

	if cfg.CookieSecure {
		t.Errorf("expected insecure cookies by default")
	}

	if cfg.IsProduction() {
		t.Errorf("expected development environment by default")
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=localhost user=women dbname=women")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENV", "production")
	t.Setenv("MEDIA_URL", "/uploads")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_TTL", "30s")
	t.Setenv("CATEGORY_CACHE_TTL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBDriver != "postgres" {
		t.Errorf("expected driver postgres, got %q", cfg.DBDriver)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.MediaURL != "/uploads/" {
		t.Errorf("expected trailing slash on media url, got %q", cfg.MediaURL)
	}

	if !cfg.CookieSecure {
		t.Errorf("expected secure cookies")
	}

	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RequestsPerSecond != 2.5 || cfg.RateLimit.ClientTTL != 30*time.Second {
		t.Errorf("unexpected rate limit settings: %+v", cfg.RateLimit)
	}

	if cfg.CategoryCacheTTL != time.Minute {
		t.Errorf("expected category cache ttl 1m, got %s", cfg.CategoryCacheTTL)
	}

	if !cfg.IsProduction() {
		t.Errorf("expected production environment")
	}
}

func TestLoadInvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "invalid")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error for invalid port, got nil")
	}

	if !strings.Contains(err.Error(), "invalid SERVER_PORT value") {
		t.Fatalf("expected error to mention invalid SERVER_PORT value, got %v", err)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoadRequiresDSNForServerDrivers(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error when DB_DSN is missing")
	}

	if !strings.Contains(err.Error(), "DB_DSN is required") {
		t.Fatalf("expected error to mention DB_DSN, got %v", err)
	}
}
