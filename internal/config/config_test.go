package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.AITimeout != 30*time.Second {
		t.Fatalf("expected 30s ai timeout, got %v", cfg.AITimeout)
	}
	if cfg.AIPlanTimeout != 5*time.Minute {
		t.Fatalf("expected 5m planner timeout, got %v", cfg.AIPlanTimeout)
	}
	if cfg.UploadMaxBytes != 5<<20 {
		t.Fatalf("expected 5MB upload ceiling, got %d", cfg.UploadMaxBytes)
	}
	if cfg.FeedBackend != "local" || cfg.KVBackend != "redis" || cfg.MediaBackend != "inline" {
		t.Fatalf("unexpected backends %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_PASSWORD", "hunter2")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("AI_PLAN_TIMEOUT", "10m")
	t.Setenv("AI_RATE_PER_SEC", "2.5")
	t.Setenv("FEED_BACKEND", "Postgres")
	t.Setenv("UPLOAD_MAX_BYTES", "1048576")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisPassword != "hunter2" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.AITimeout != 45*time.Second || cfg.AIPlanTimeout != 10*time.Minute || cfg.AIRatePerSec != 2.5 {
		t.Fatalf("unexpected ai settings %v %v %v", cfg.AITimeout, cfg.AIPlanTimeout, cfg.AIRatePerSec)
	}
	if cfg.FeedBackend != "postgres" || cfg.UploadMaxBytes != 1<<20 {
		t.Fatalf("unexpected feed/upload settings %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	base := Load()
	cases := map[string]func(*Config){
		"unknown feed":       func(c *Config) { c.FeedBackend = "mongo" },
		"firestore no proj":  func(c *Config) { c.FeedBackend = "firestore"; c.FirebaseProjectID = "" },
		"unknown kv":         func(c *Config) { c.KVBackend = "memcached" },
		"firebase no bucket": func(c *Config) { c.MediaBackend = "firebase"; c.FirebaseStorageBucket = "" },
		"s3 no bucket":       func(c *Config) { c.MediaBackend = "s3"; c.S3Bucket = "" },
		"zero upload":        func(c *Config) { c.UploadMaxBytes = 0 },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
