// Package config is the system-wide settings layer: defaults, environment
// overrides, and optional JSON file configuration, with a .env file loaded
// first so containerized and local runs share one mechanism.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTP     *HTTPConfig     `json:"http"`
	Rooms    *RoomsConfig    `json:"rooms"`
	Auth     *AuthConfig     `json:"auth"`
	Database *DatabaseConfig `json:"database"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// RoomsConfig tunes the registry's idle-room garbage collection.
type RoomsConfig struct {
	IdleTimeout time.Duration `json:"idle_timeout"`
	GCInterval  time.Duration `json:"gc_interval"`
}

type AuthConfig struct {
	SigningKey string `json:"signing_key"`
	DevMode    bool   `json:"dev_mode"`
}

type DatabaseConfig struct {
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Rooms: &RoomsConfig{
			IdleTimeout: 2 * time.Hour,
			GCInterval:  5 * time.Minute,
		},
		Auth: &AuthConfig{
			SigningKey: "",
			DevMode:    false,
		},
		Database: &DatabaseConfig{
			Path:    "./thoughtswap.db",
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.Rooms == nil {
		return fmt.Errorf("rooms configuration is required")
	}
	if c.Rooms.IdleTimeout <= 0 {
		return fmt.Errorf("room idle timeout must be positive")
	}
	if c.Rooms.GCInterval <= 0 {
		return fmt.Errorf("room GC interval must be positive")
	}
	if c.Auth == nil {
		return fmt.Errorf("auth configuration is required")
	}
	if c.Auth.SigningKey == "" && !c.Auth.DevMode {
		return fmt.Errorf("auth signing key is required outside dev mode")
	}
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}
	return nil
}

// LoadFromEnv builds configuration from defaults plus THOUGHTSWAP_*
// environment overrides. A .env file in the working directory is applied
// first; a missing file is not an error.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	config := DefaultConfig()

	if host := os.Getenv("THOUGHTSWAP_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if port := os.Getenv("THOUGHTSWAP_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if timeout := os.Getenv("THOUGHTSWAP_HTTP_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.HTTP.ReadTimeout = d
		}
	}
	if timeout := os.Getenv("THOUGHTSWAP_HTTP_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.HTTP.WriteTimeout = d
		}
	}
	if timeout := os.Getenv("THOUGHTSWAP_ROOM_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Rooms.IdleTimeout = d
		}
	}
	if interval := os.Getenv("THOUGHTSWAP_ROOM_GC_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Rooms.GCInterval = d
		}
	}
	if key := os.Getenv("THOUGHTSWAP_AUTH_SIGNING_KEY"); key != "" {
		config.Auth.SigningKey = key
	}
	if dev := os.Getenv("THOUGHTSWAP_AUTH_DEV_MODE"); dev != "" {
		if b, err := strconv.ParseBool(dev); err == nil {
			config.Auth.DevMode = b
		}
	}
	if path := os.Getenv("THOUGHTSWAP_DATABASE_PATH"); path != "" {
		config.Database.Path = path
	}
	if timeout := os.Getenv("THOUGHTSWAP_DATABASE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Database.Timeout = d
		}
	}
	return config
}

// configFile mirrors Config with string durations for JSON parsing.
type configFile struct {
	HTTP *struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	Rooms *struct {
		IdleTimeout string `json:"idle_timeout"`
		GCInterval  string `json:"gc_interval"`
	} `json:"rooms"`
	Auth *struct {
		SigningKey string `json:"signing_key"`
		DevMode    *bool  `json:"dev_mode"`
	} `json:"auth"`
	Database *struct {
		Path    string `json:"path"`
		Timeout string `json:"timeout"`
	} `json:"database"`
}

// LoadFromFile overlays a JSON config file onto the environment-derived
// configuration, so precedence is file > env > defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := LoadFromEnv()
	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port != 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		if err := overlayDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout); err != nil {
			return nil, err
		}
		if err := overlayDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout); err != nil {
			return nil, err
		}
	}
	if file.Rooms != nil {
		if err := overlayDuration(&config.Rooms.IdleTimeout, file.Rooms.IdleTimeout); err != nil {
			return nil, err
		}
		if err := overlayDuration(&config.Rooms.GCInterval, file.Rooms.GCInterval); err != nil {
			return nil, err
		}
	}
	if file.Auth != nil {
		if file.Auth.SigningKey != "" {
			config.Auth.SigningKey = file.Auth.SigningKey
		}
		if file.Auth.DevMode != nil {
			config.Auth.DevMode = *file.Auth.DevMode
		}
	}
	if file.Database != nil {
		if file.Database.Path != "" {
			config.Database.Path = file.Database.Path
		}
		if err := overlayDuration(&config.Database.Timeout, file.Database.Timeout); err != nil {
			return nil, err
		}
	}
	return config, nil
}

func overlayDuration(dst *time.Duration, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*dst = d
	return nil
}
