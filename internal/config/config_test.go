package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Env:                   "development",
		DatabaseURL:           "postgres://localhost/dosehub",
		JWTKey:                strings.Repeat("k", 48),
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLDays:   7,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ShortJWTKey(t *testing.T) {
	cfg := validConfig()
	cfg.JWTKey = "too-short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short JWT key")
	}
}

func TestValidate_NonPositiveTTLs(t *testing.T) {
	cfg := validConfig()
	cfg.AccessTokenTTLMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero access token TTL")
	}

	cfg = validConfig()
	cfg.RefreshTokenTTLDays = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative refresh TTL")
	}
}

func TestValidate_ProductionRequiresEmailAndGoogle(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for production without SMTP")
	}

	cfg.SMTPHost = "smtp.example.com"
	cfg.SMTPFrom = "noreply@example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for production without Google client id")
	}

	cfg.GoogleClientID = "client-id"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_BadRedirectURI(t *testing.T) {
	cfg := validConfig()
	cfg.GoogleRedirectURI = "ftp://example.com/callback"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http redirect URI")
	}
}

func TestIsDev(t *testing.T) {
	cfg := validConfig()
	if !cfg.IsDev() {
		t.Error("expected development mode")
	}
	cfg.Env = "production"
	if cfg.IsDev() || !cfg.IsProduction() {
		t.Error("expected production mode")
	}
}
