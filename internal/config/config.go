package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	APIBaseURL        string        `mapstructure:"API_BASE_URL"`
	APITimeout        time.Duration `mapstructure:"API_TIMEOUT"`
	CredentialStore   string        `mapstructure:"CREDENTIAL_STORE"`
	CredentialTTL     time.Duration `mapstructure:"CREDENTIAL_TTL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	SessionCookieName string        `mapstructure:"SESSION_COOKIE_NAME"`
	SessionCookieAge  time.Duration `mapstructure:"SESSION_COOKIE_MAX_AGE"`
	SessionIdleTTL    time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	CSRFEnabled       bool          `mapstructure:"CSRF_ENABLED"`
	TLSEnabled        bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile       string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile        string        `mapstructure:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("API_BASE_URL", "http://localhost:8000/api/v1")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("CREDENTIAL_STORE", StoreMemory)
	v.SetDefault("CREDENTIAL_TTL", "720h")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_COOKIE_NAME", "prms_sid")
	v.SetDefault("SESSION_COOKIE_MAX_AGE", "720h")
	v.SetDefault("SESSION_IDLE_TTL", "2h")
	v.SetDefault("CSRF_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "API_BASE_URL", "API_TIMEOUT",
		"CREDENTIAL_STORE", "CREDENTIAL_TTL",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
		"SESSION_COOKIE_NAME", "SESSION_COOKIE_MAX_AGE", "SESSION_IDLE_TTL",
		"CSRF_ENABLED", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.IsDev() && cfg.CredentialStore == StoreMemory {
		log.Println("WARNING: credentials are kept in memory; restarting the portal signs every user out.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the portal is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks cross-field rules. The credential backend decides which
// connection settings are required; production additionally demands TLS
// material when TLS is on and a shared credential store.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.APITimeout < 0 {
		return fmt.Errorf("API_TIMEOUT must not be negative, got %s", c.APITimeout)
	}

	switch c.CredentialStore {
	case StoreMemory:
		if c.IsProduction() {
			return fmt.Errorf("CREDENTIAL_STORE=memory is not allowed in production; use %q or %q", StorePostgres, StoreRedis)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when CREDENTIAL_STORE is %q", StorePostgres)
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CREDENTIAL_STORE is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("CREDENTIAL_STORE must be %q, %q, or %q, got %q", StoreMemory, StorePostgres, StoreRedis, c.CredentialStore)
	}

	if c.SessionCookieName == "" {
		return fmt.Errorf("SESSION_COOKIE_NAME must not be empty")
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
