package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_ValidatesInDevMode(t *testing.T) {
	c := DefaultConfig()
	c.Auth.DevMode = true
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing signing key outside dev mode", func(c *Config) { c.Auth.SigningKey = ""; c.Auth.DevMode = false }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"negative idle timeout", func(c *Config) { c.Rooms.IdleTimeout = -time.Minute }},
		{"zero gc interval", func(c *Config) { c.Rooms.GCInterval = 0 }},
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"nil http", func(c *Config) { c.HTTP = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.Auth.SigningKey = "k"
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("THOUGHTSWAP_HTTP_PORT", "9090")
	t.Setenv("THOUGHTSWAP_ROOM_IDLE_TIMEOUT", "45m")
	t.Setenv("THOUGHTSWAP_AUTH_SIGNING_KEY", "secret")
	t.Setenv("THOUGHTSWAP_AUTH_DEV_MODE", "true")
	t.Setenv("THOUGHTSWAP_DATABASE_PATH", "/tmp/ts.db")

	c := LoadFromEnv()
	if c.HTTP.Port != 9090 {
		t.Errorf("Port = %d, want 9090", c.HTTP.Port)
	}
	if c.Rooms.IdleTimeout != 45*time.Minute {
		t.Errorf("IdleTimeout = %v, want 45m", c.Rooms.IdleTimeout)
	}
	if c.Auth.SigningKey != "secret" || !c.Auth.DevMode {
		t.Errorf("Auth = %+v", c.Auth)
	}
	if c.Database.Path != "/tmp/ts.db" {
		t.Errorf("Database.Path = %q", c.Database.Path)
	}
}

func TestLoadFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("THOUGHTSWAP_HTTP_PORT", "not-a-number")
	t.Setenv("THOUGHTSWAP_ROOM_GC_INTERVAL", "soon")

	c := LoadFromEnv()
	if c.HTTP.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", c.HTTP.Port)
	}
	if c.Rooms.GCInterval != 5*time.Minute {
		t.Errorf("GCInterval = %v, want default 5m", c.Rooms.GCInterval)
	}
}

func TestLoadFromFile_OverridesEnv(t *testing.T) {
	t.Setenv("THOUGHTSWAP_HTTP_PORT", "9090")

	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"http": {"port": 7070, "read_timeout": "10s"},
		"rooms": {"idle_timeout": "1h"},
		"auth": {"signing_key": "file-secret"}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if c.HTTP.Port != 7070 {
		t.Errorf("Port = %d, want file value 7070 over env 9090", c.HTTP.Port)
	}
	if c.HTTP.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", c.HTTP.ReadTimeout)
	}
	if c.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("WriteTimeout = %v, want default 30s", c.HTTP.WriteTimeout)
	}
	if c.Rooms.IdleTimeout != time.Hour {
		t.Errorf("IdleTimeout = %v, want 1h", c.Rooms.IdleTimeout)
	}
	if c.Auth.SigningKey != "file-secret" {
		t.Errorf("SigningKey = %q", c.Auth.SigningKey)
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.json"); err == nil {
		t.Error("LoadFromFile() = nil error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`{"http": {"read_timeout": "forever"}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("LoadFromFile() = nil error for bad duration")
	}
}
