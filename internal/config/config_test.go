package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"liveacademy/internal/logging"
	dbconfig "liveacademy/pkg/database"
)

// FUNCTIONAL VALIDATION TEST: Default configuration provides production-ready settings
func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	if config.Database.DatabasePath == "" {
		t.Error("Default database path should not be empty")
	}
	if config.HTTP.Port != 5000 {
		t.Errorf("Expected default port 5000, got %d", config.HTTP.Port)
	}
	if config.Zoom.SignatureTTL != 2*time.Minute {
		t.Errorf("Expected signature ttl 2m, got %v", config.Zoom.SignatureTTL)
	}
	if config.Zoom.RequestTimeout != 10*time.Second {
		t.Errorf("Expected request timeout 10s, got %v", config.Zoom.RequestTimeout)
	}
	if config.Zoom.OAuthUser != "me" {
		t.Errorf("Expected oauth user me, got %q", config.Zoom.OAuthUser)
	}
	if config.Zoom.ZoomCredentialsLoaded() {
		t.Error("Default config should not carry zoom credentials")
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

// FUNCTIONAL VALIDATION TEST: Configuration validation prevents invalid settings
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = -1 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"empty database path", func(c *Config) { c.Database.DatabasePath = "" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = dbconfig.DriverPostgres }},
		{"ping exceeds read timeout", func(c *Config) { c.WebSocket.PingInterval = 2 * time.Minute }},
		{"zero buffer", func(c *Config) { c.WebSocket.BufferSize = 0 }},
		{"zero zoom timeout", func(c *Config) { c.Zoom.RequestTimeout = 0 }},
		{"bad timezone", func(c *Config) { c.Zoom.DefaultTimezone = "Mars/Olympus" }},
		{"missing section", func(c *Config) { c.Security = nil }},
		{"zero webhook limit", func(c *Config) { c.Security.WebhookRateLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ZOOM_CLIENT_ID", "cid")
	t.Setenv("ZOOM_CLIENT_SECRET", "csecret")
	t.Setenv("ZOOM_ACCOUNT_ID", "acct")
	t.Setenv("ZOOM_SDK_KEY", "sdk-key")
	t.Setenv("SDK_SECRET", "sdk-secret")
	t.Setenv("ACADEMY_WEBSOCKET_PING_INTERVAL", "15s")
	t.Setenv("ACADEMY_CORS_ORIGINS", "https://a.example, https://b.example")

	config := LoadFromEnv()

	if config.HTTP.Port != 8081 {
		t.Errorf("Expected port 8081, got %d", config.HTTP.Port)
	}
	if config.Auth.JWTSecret != "s3cret" {
		t.Errorf("Expected jwt secret from env, got %q", config.Auth.JWTSecret)
	}
	if !config.Zoom.ZoomCredentialsLoaded() {
		t.Error("Expected zoom credentials to be loaded")
	}
	if config.Zoom.SDKKey != "sdk-key" || config.Zoom.SDKSecret != "sdk-secret" {
		t.Errorf("Unexpected sdk credentials %q/%q", config.Zoom.SDKKey, config.Zoom.SDKSecret)
	}
	if config.WebSocket.PingInterval != 15*time.Second {
		t.Errorf("Expected ping interval 15s, got %v", config.WebSocket.PingInterval)
	}
	if len(config.Security.CORSOrigins) != 2 || config.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected cors origins %v", config.Security.CORSOrigins)
	}
}

func TestConfig_LoadFromEnvPrefersAcademyPort(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ACADEMY_HTTP_PORT", "9090")

	if port := LoadFromEnv().HTTP.Port; port != 9090 {
		t.Errorf("Expected ACADEMY_HTTP_PORT to win, got %d", port)
	}
}

func TestConfig_LoadFromEnvDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://academy@localhost/academy?sslmode=disable")

	config := LoadFromEnv()
	if config.Database.Driver != dbconfig.DriverPostgres {
		t.Errorf("Expected postgres driver, got %q", config.Database.Driver)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected postgres config to validate: %v", err)
	}
}

func TestConfig_LoadFromEnvEdgeCases(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("ACADEMY_HTTP_READ_TIMEOUT", "forever")

	config := LoadFromEnv()
	if config.HTTP.Port != 5000 {
		t.Errorf("Invalid port should keep default, got %d", config.HTTP.Port)
	}
	if config.HTTP.ReadTimeout != 30*time.Second {
		t.Errorf("Invalid duration should keep default, got %v", config.HTTP.ReadTimeout)
	}
}

func TestConfig_LoadFromEnvWarnsOnMalformedValues(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	t.Setenv("PORT", "abc")
	t.Setenv("ACADEMY_WEBSOCKET_PING_INTERVAL", "often")
	t.Setenv("ACADEMY_WEBSOCKET_BUFFER_SIZE", "64")

	config := LoadFromEnv()
	if config.HTTP.Port != 5000 {
		t.Errorf("Malformed PORT should keep default, got %d", config.HTTP.Port)
	}
	if config.WebSocket.BufferSize != 64 {
		t.Errorf("Well-formed values should still apply, got %d", config.WebSocket.BufferSize)
	}

	out := buf.String()
	for _, name := range []string{"PORT", "ACADEMY_WEBSOCKET_PING_INTERVAL"} {
		if !strings.Contains(out, `"env":"`+name+`"`) {
			t.Errorf("Expected a warning naming %s, got %s", name, out)
		}
	}
}

func TestConfig_LoadFromEnvSDKKeyPrecedence(t *testing.T) {
	t.Setenv("ZOOM_SDK_KEY", "fallback")
	t.Setenv("SDK_KEY", "primary")
	t.Setenv("ACADEMY_CORS_ORIGINS", "https://only.example")

	config := LoadFromEnv()
	if config.Zoom.SDKKey != "primary" {
		t.Errorf("Expected SDK_KEY to win, got %q", config.Zoom.SDKKey)
	}
	if len(config.Security.CORSOrigins) != 1 || config.Security.CORSOrigins[0] != "https://only.example" {
		t.Errorf("Expected env origins to replace defaults, got %v", config.Security.CORSOrigins)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestConfig_LoadFromFile(t *testing.T) {
	path := writeFile(t, `
http:
  port: 7000
  read_timeout: 5s
database:
  path: /tmp/academy.db
zoom:
  default_timezone: UTC
  sdk_key: file-key
security:
  cors_origins:
    - https://academy.example
`)

	config, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.HTTP.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", config.HTTP.Port)
	}
	if config.HTTP.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", config.HTTP.ReadTimeout)
	}
	if config.HTTP.WriteTimeout != 30*time.Second {
		t.Errorf("Unset fields should keep defaults, got %v", config.HTTP.WriteTimeout)
	}
	if config.Database.DatabasePath != "/tmp/academy.db" {
		t.Errorf("Expected database path from file, got %q", config.Database.DatabasePath)
	}
	if config.Zoom.DefaultTimezone != "UTC" || config.Zoom.SDKKey != "file-key" {
		t.Errorf("Unexpected zoom section %+v", config.Zoom)
	}
	if len(config.Security.CORSOrigins) != 1 || config.Security.CORSOrigins[0] != "https://academy.example" {
		t.Errorf("Unexpected cors origins %v", config.Security.CORSOrigins)
	}
}

func TestConfig_LoadFromFileInvalid(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := writeFile(t, "http: [unclosed")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}

	path = writeFile(t, "http:\n  port: 0\n")
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected validation error for port 0")
	}
}

func TestConfig_LoadConfigWithPrecedence(t *testing.T) {
	path := writeFile(t, `
http:
  port: 7000
  host: 127.0.0.1
`)
	t.Setenv("PORT", "7100")

	config := LoadConfigWithPrecedence(path)
	if config.HTTP.Port != 7100 {
		t.Errorf("Environment should override file, got port %d", config.HTTP.Port)
	}
	if config.HTTP.Host != "127.0.0.1" {
		t.Errorf("File should override defaults, got host %q", config.HTTP.Host)
	}
}

func TestConfig_LoadConfigWithPrecedenceMissingFile(t *testing.T) {
	config := LoadConfigWithPrecedence(filepath.Join(t.TempDir(), "missing.yaml"))
	if config.HTTP.Port != 5000 {
		t.Errorf("Missing file should fall back to defaults, got port %d", config.HTTP.Port)
	}
}
