package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("port: got %q, want 8000", cfg.Port)
	}
	if cfg.CartTTL != 2*time.Hour {
		t.Errorf("cart ttl: got %v, want 2h", cfg.CartTTL)
	}
	if cfg.CartMax != 10000 {
		t.Errorf("cart max: got %d, want 10000", cfg.CartMax)
	}
	if cfg.Events.Driver != "log" {
		t.Errorf("events driver: got %q, want log", cfg.Events.Driver)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "port: \"9000\"\njwt_secret: from-file\nlogging:\n  level: debug\nevents:\n  driver: nats\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("port: got %q, want 9100", cfg.Port)
	}
	if cfg.JWTSecret != "from-file" {
		t.Errorf("jwt secret: got %q, want from-file", cfg.JWTSecret)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level: got %q, want debug", cfg.Logging.Level)
	}
	if cfg.Events.Driver != "nats" {
		t.Errorf("events driver: got %q, want nats", cfg.Events.Driver)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("access ttl: got %v, want 30m", cfg.AccessTokenTTL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CART_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid CART_TTL")
	}
}

func TestLoad_CartMax(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CART_MAX", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CartMax != 250 {
		t.Errorf("cart max: got %d, want 250", cfg.CartMax)
	}

	t.Setenv("CART_MAX", "lots")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid CART_MAX")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_Timezone(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMEZONE", "Asia/Jakarta")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Location().String(); got != "Asia/Jakarta" {
		t.Errorf("location: got %q, want Asia/Jakarta", got)
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("TIMEZONE", "Nowhere/Special")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
