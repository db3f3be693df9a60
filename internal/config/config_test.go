package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "test-secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Port)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("expected json log format, got %q", cfg.LogFormat)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("expected wildcard origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.CacheWarmInterval != 10*time.Minute {
		t.Fatalf("expected 10m warm interval, got %s", cfg.CacheWarmInterval)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error without SUPABASE_JWT_SECRET")
	}
}

func TestLoadParsesOrigins(t *testing.T) {
	t.Setenv("SUPABASE_JWT_SECRET", "test-secret")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, https://admin.example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://admin.example.com" {
		t.Fatalf("expected trimmed origin, got %q", cfg.AllowedOrigins[1])
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := Config{Port: 8080, SupabaseJWTSecret: "x", LogFormat: "xml", CacheWarmInterval: time.Hour}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log format")
	}
}

func TestSupabaseKeyPrefersServiceRole(t *testing.T) {
	cfg := Config{SupabaseAnonKey: "anon", SupabaseServiceKey: "service"}
	if cfg.SupabaseKey() != "service" {
		t.Fatalf("expected service key, got %q", cfg.SupabaseKey())
	}
	cfg.SupabaseServiceKey = ""
	if cfg.SupabaseKey() != "anon" {
		t.Fatalf("expected anon key, got %q", cfg.SupabaseKey())
	}
}
