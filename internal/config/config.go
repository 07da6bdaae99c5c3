package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName          string
	AppEnv           string
	AppPort          string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	TokenTTL         time.Duration
	LockoutThreshold int
	LockoutWindow    time.Duration
	MinPasswordAge   time.Duration
	BcryptCost       int
	AuditCacheTTL    time.Duration
	LoginRateLimit   int
	LoginRateWindow  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SECURELMS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SecureLMS API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("token.ttl", "24h")
	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.window", "15m")
	v.SetDefault("password.min_age", "24h")
	v.SetDefault("bcrypt.cost", bcrypt.DefaultCost)
	v.SetDefault("audit.cache_ttl", "1m")
	v.SetDefault("login.rate_limit", 10)
	v.SetDefault("login.rate_window", "1m")

	tokenTTL, err := parseDuration(v, "token.ttl", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	lockoutWindow, err := parseDuration(v, "lockout.window", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	minPasswordAge, err := parseDuration(v, "password.min_age", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	auditCacheTTL, err := parseDuration(v, "audit.cache_ttl", time.Minute)
	if err != nil {
		return Config{}, err
	}
	loginRateWindow, err := parseDuration(v, "login.rate_window", time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:          v.GetString("app.name"),
		AppEnv:           v.GetString("app.env"),
		AppPort:          v.GetString("app.port"),
		DatabaseURL:      v.GetString("database.url"),
		RedisURL:         v.GetString("redis.url"),
		JWTSecret:        v.GetString("jwt.secret"),
		TokenTTL:         tokenTTL,
		LockoutThreshold: v.GetInt("lockout.threshold"),
		LockoutWindow:    lockoutWindow,
		MinPasswordAge:   minPasswordAge,
		BcryptCost:       v.GetInt("bcrypt.cost"),
		AuditCacheTTL:    auditCacheTTL,
		LoginRateLimit:   v.GetInt("login.rate_limit"),
		LoginRateWindow:  loginRateWindow,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = 5
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	if cfg.LoginRateLimit <= 0 {
		cfg.LoginRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string, fallback time.Duration) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return fallback, nil
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return fallback, nil
	}

	return parsed, nil
}
