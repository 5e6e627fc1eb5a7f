package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.HTTPAddr != ":3000" {
		t.Errorf("expected default addr :3000, got %q", cfg.App.HTTPAddr)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.App.LogLevel)
	}
	if cfg.App.RateLimit != 3 || cfg.App.RateBurst != 5 {
		t.Errorf("unexpected rate limit defaults: %v/%v", cfg.App.RateLimit, cfg.App.RateBurst)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected redis addr: %q", cfg.Redis.Addr)
	}
}

func TestLoad_FileWithPartialFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"app":{"http_addr":":8080"},"security":{"jwt_secret":"from_file"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.HTTPAddr != ":8080" {
		t.Errorf("file value not applied, got %q", cfg.App.HTTPAddr)
	}
	if cfg.Security.JWTSecret != "from_file" {
		t.Errorf("jwt secret not read from file, got %q", cfg.Security.JWTSecret)
	}
	// 未设置的字段回落到默认值
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level, got %q", cfg.App.LogLevel)
	}
	if cfg.MySQL.DSN == "" {
		t.Errorf("expected default DSN to be filled in")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "env_secret")
	t.Setenv("ADMIN_EMAIL", "admin@example.com")
	t.Setenv("ADMIN_PASSWORD", "admin123")
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("APP_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Security.JWTSecret != "env_secret" {
		t.Errorf("JWT_SECRET not applied, got %q", cfg.Security.JWTSecret)
	}
	if cfg.Security.AdminEmail != "admin@example.com" || cfg.Security.AdminPassword != "admin123" {
		t.Errorf("admin overrides not applied: %q / %q", cfg.Security.AdminEmail, cfg.Security.AdminPassword)
	}
	if cfg.Redis.Addr != "redis:6380" {
		t.Errorf("REDIS_ADDR not applied, got %q", cfg.Redis.Addr)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("APP_LOG_LEVEL not applied, got %q", cfg.App.LogLevel)
	}
}

func TestLoad_PortFallback(t *testing.T) {
	t.Setenv("PORT", "4000")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTPAddr != ":4000" {
		t.Errorf("PORT fallback not applied, got %q", cfg.App.HTTPAddr)
	}
}

func TestLoad_DBHostOverrideRewritesDSN(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PASSWORD", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !strings.Contains(cfg.MySQL.DSN, "db.internal:3306") {
		t.Errorf("DB_HOST not folded into DSN: %q", cfg.MySQL.DSN)
	}
	if !strings.Contains(cfg.MySQL.DSN, "s3cret") {
		t.Errorf("DB_PASSWORD not folded into DSN: %q", cfg.MySQL.DSN)
	}
	if !strings.Contains(cfg.MySQL.DSN, "parseTime=true") {
		t.Errorf("DSN lost parseTime param: %q", cfg.MySQL.DSN)
	}
}
