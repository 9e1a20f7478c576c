// Package config loads server settings from an optional YAML file with
// GHOSTGATE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from yaml strings like
// "2m" as well as integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return err
	}
	*d = Duration(n)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds server settings
type Config struct {
	Addr string `yaml:"addr" json:"addr"` // Listen address, e.g. ":8080"

	// Session settings
	NonceTTL      Duration `yaml:"nonce_ttl" json:"nonce_ttl"`           // Nonce validity window
	BcryptCost    int      `yaml:"bcrypt_cost" json:"bcrypt_cost"`       // 0 picks the bcrypt default
	SessionCookie string   `yaml:"session_cookie" json:"session_cookie"` // Nonce token cookie name
	ClientCookie  string   `yaml:"client_cookie" json:"client_cookie"`   // Persistent client id cookie name

	// Store backend: memory, sqlite or postgres
	Store       string `yaml:"store" json:"store"`
	SQLitePath  string `yaml:"sqlite_path" json:"sqlite_path"`
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`
	LogFile    string `yaml:"log_file" json:"log_file"`
	LogConsole bool   `yaml:"log_console" json:"log_console"`
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	return &Config{
		Addr:          getEnv("GHOSTGATE_ADDR", ":"+getEnv("PORT", "8080")),
		NonceTTL:      Duration(getEnvDuration("GHOSTGATE_NONCE_TTL", 2*time.Minute)),
		BcryptCost:    getEnvInt("GHOSTGATE_BCRYPT_COST", 0),
		SessionCookie: getEnv("GHOSTGATE_SESSION_COOKIE", "nonceToken"),
		ClientCookie:  getEnv("GHOSTGATE_CLIENT_COOKIE", "cid"),
		Store:         getEnv("GHOSTGATE_STORE", "memory"),
		SQLitePath:    getEnv("GHOSTGATE_SQLITE_PATH", "ghostgate.db"),
		DatabaseURL:   getEnv("DATABASE_URL", "postgres://localhost:5432/ghostgate?sslmode=disable"),
		LogLevel:      getEnv("GHOSTGATE_LOG_LEVEL", "INFO"),
		LogFile:       getEnv("GHOSTGATE_LOG_FILE", ""),
		LogConsole:    getEnv("GHOSTGATE_LOG_CONSOLE", "true") == "true",
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Load loads config from path, falling back to defaults when the file
// does not exist. Environment variables seed the defaults, so the file
// wins over the environment when both are present.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the backend selection.
func (c *Config) Validate() error {
	switch c.Store {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.NonceTTL <= 0 {
		return fmt.Errorf("nonce_ttl must be positive")
	}
	return nil
}
