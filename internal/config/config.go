// Package config loads application settings from an optional config.yaml and
// MEDICORE_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"

	minSecretLength = 32
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Search   SearchConfig   `mapstructure:"search"`
	Admin    AdminConfig    `mapstructure:"admin"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	CookieSecure   bool     `mapstructure:"cookie_secure"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// SessionConfig selects the session store and signs the session cookie.
type SessionConfig struct {
	Store           string        `mapstructure:"store"`
	Secret          string        `mapstructure:"secret"`
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	BcryptCost int           `mapstructure:"bcrypt_cost"`
	OTPTTL     time.Duration `mapstructure:"otp_ttl"`
}

// SMTPConfig configures OTP delivery. An empty Host logs mail instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SearchConfig struct {
	YouTubeAPIKey string        `mapstructure:"youtube_api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AdminConfig guards the admin endpoints. An empty APIKey disables them.
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// Load reads configuration from config.yaml in the given directories (or the
// default search path when none are given) and from the environment.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/etc/medicore"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("MEDICORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cookie_secure", true)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5500", "http://127.0.0.1:5500"})

	v.SetDefault("database.path", "medicore.db")

	v.SetDefault("session.store", SessionStoreSQLite)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.janitor_interval", "15m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.otp_ttl", "10m")

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")

	v.SetDefault("search.youtube_api_key", "")
	v.SetDefault("search.timeout", "10s")

	v.SetDefault("admin.api_key", "")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if len(c.Session.Secret) < minSecretLength {
		return fmt.Errorf("session.secret must be at least %d characters", minSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.JanitorInterval <= 0 {
		return errors.New("session.janitor_interval must be positive")
	}
	switch c.Session.Store {
	case SessionStoreSQLite:
	case SessionStoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required when session.store is redis")
		}
	default:
		return fmt.Errorf("session.store must be %q or %q, got %q", SessionStoreSQLite, SessionStoreRedis, c.Session.Store)
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 14 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 14, got %d", c.Auth.BcryptCost)
	}
	if c.Auth.OTPTTL <= 0 {
		return errors.New("auth.otp_ttl must be positive")
	}
	if c.SMTP.Host != "" && (c.SMTP.Port <= 0 || c.SMTP.Port > 65535) {
		return fmt.Errorf("smtp.port %d out of range", c.SMTP.Port)
	}
	if c.Search.Timeout <= 0 {
		return errors.New("search.timeout must be positive")
	}
	return nil
}
