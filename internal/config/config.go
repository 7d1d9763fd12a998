package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`

	// Connection recycling; zero keeps the driver defaults.
	DBConnMaxLifetimeMinutes int `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBConnMaxIdleMinutes     int `mapstructure:"DB_CONN_MAX_IDLE_MINUTES"`

	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`

	// Token signing. The key is loaded once at startup and injected into the
	// token service; nothing else reads it.
	JWTKey                   string `mapstructure:"JWT_KEY"`
	JWTIssuer                string `mapstructure:"JWT_ISSUER"`
	JWTAudience              string `mapstructure:"JWT_AUDIENCE"`
	AccessTokenTTLMinutes    int    `mapstructure:"ACCESS_TOKEN_TTL_MINUTES"`
	RegistrationTTLMinutes   int    `mapstructure:"REGISTRATION_TOKEN_TTL_MINUTES"`
	RefreshTokenTTLDays      int    `mapstructure:"REFRESH_TOKEN_TTL_DAYS"`
	ConfirmationTTLMinutes   int    `mapstructure:"CONFIRMATION_CODE_TTL_MINUTES"`
	CodeResendDelaySeconds   int    `mapstructure:"CODE_RESEND_DELAY_SECONDS"`
	PasswordResetTTLMinutes  int    `mapstructure:"PASSWORD_RESET_TTL_MINUTES"`

	// Email delivery.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	// Google sign-in.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI  string `mapstructure:"GOOGLE_REDIRECT_URI"`

	DefaultAvatarURL string  `mapstructure:"DEFAULT_AVATAR_URL"`
	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("DB_CONN_MAX_IDLE_MINUTES", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ACCESS_TOKEN_TTL_MINUTES", 15)
	v.SetDefault("REGISTRATION_TOKEN_TTL_MINUTES", 30)
	v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 7)
	v.SetDefault("CONFIRMATION_CODE_TTL_MINUTES", 10)
	v.SetDefault("CODE_RESEND_DELAY_SECONDS", 60)
	v.SetDefault("PASSWORD_RESET_TTL_MINUTES", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("DEFAULT_AVATAR_URL", "/static/default-avatar.png")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_CONN_MAX_LIFETIME_MINUTES", "DB_CONN_MAX_IDLE_MINUTES",
		"DEFAULT_TENANT", "CORS_ORIGINS",
		"JWT_KEY", "JWT_ISSUER", "JWT_AUDIENCE",
		"ACCESS_TOKEN_TTL_MINUTES", "REGISTRATION_TOKEN_TTL_MINUTES",
		"REFRESH_TOKEN_TTL_DAYS", "CONFIRMATION_CODE_TTL_MINUTES",
		"CODE_RESEND_DELAY_SECONDS", "PASSWORD_RESET_TTL_MINUTES",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REDIRECT_URI",
		"DEFAULT_AVATAR_URL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The signing key is
// mandatory everywhere; email and Google settings only in production.
func (c *Config) Validate() error {
	if len(c.JWTKey) < 32 {
		return fmt.Errorf("JWT_KEY must be at least 32 characters, got %d", len(c.JWTKey))
	}
	if c.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	if c.RefreshTokenTTLDays <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL_DAYS must be positive")
	}

	if c.IsProduction() {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required in production")
		}
		if c.SMTPFrom == "" {
			return fmt.Errorf("SMTP_FROM is required in production")
		}
		if c.GoogleClientID == "" {
			return fmt.Errorf("GOOGLE_CLIENT_ID is required in production")
		}
	}

	if c.GoogleRedirectURI != "" {
		u, err := url.Parse(c.GoogleRedirectURI)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("GOOGLE_REDIRECT_URI must be a valid http(s) URL")
		}
	}

	return nil
}
