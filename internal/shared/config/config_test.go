package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	b := cfg.Galaxy.Bounds()
	if b.Galaxies != 9 || b.Systems != 499 || b.Positions != 15 {
		t.Fatalf("unexpected default bounds: %+v", b)
	}
	if cfg.Claims.Store != "postgres" {
		t.Fatalf("expected postgres store by default, got %q", cfg.Claims.Store)
	}
	if cfg.Claims.WriteTimeout != 5*time.Second {
		t.Fatalf("expected 5s write timeout, got %s", cfg.Claims.WriteTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("GALAXY_POSITIONS", "20")
	t.Setenv("CLAIM_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Galaxy.Bounds().Positions != 20 {
		t.Fatalf("expected 20 positions, got %d", cfg.Galaxy.Bounds().Positions)
	}
	if !cfg.Logging.JSONFormat() {
		t.Fatal("expected json logging")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "at least 32"},
		{"zero positions", map[string]string{"JWT_SECRET": testSecret, "GALAXY_POSITIONS": "0"}, "galaxy bounds"},
		{"unknown store", map[string]string{"JWT_SECRET": testSecret, "CLAIM_STORE": "etcd"}, "unknown CLAIM_STORE"},
		{"insecure cookie in production", map[string]string{"JWT_SECRET": testSecret, "ENVIRONMENT": "production"}, "AUTH_COOKIE_SECURE"},
		{"zero retry tries", map[string]string{"JWT_SECRET": testSecret, "CLAIM_RETRY_MAX_TRIES": "0"}, "CLAIM_RETRY_MAX_TRIES"},
		{"redis store disabled", map[string]string{"JWT_SECRET": testSecret, "CLAIM_STORE": "redis"}, "REDIS_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			err = cfg.validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
