package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"liveacademy/internal/logging"
	dbconfig "liveacademy/pkg/database"
)

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings coordinator
// Clean separation between configuration management and business logic
type Config struct {
	Database  *dbconfig.Config `koanf:"database"`
	HTTP      *HTTPConfig      `koanf:"http"`
	WebSocket *WebSocketConfig `koanf:"websocket"`
	Zoom      *ZoomConfig      `koanf:"zoom"`
	Auth      *AuthConfig      `koanf:"auth"`
	Logging   *LoggingConfig   `koanf:"logging"`
	Security  *SecurityConfig  `koanf:"security"`
}

type HTTPConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval    time.Duration `koanf:"ping_interval"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	BufferSize      int           `koanf:"buffer_size"`
	EventsPerMinute int           `koanf:"events_per_minute"`
}

// ZoomConfig holds meeting provider credentials. Empty credentials are not a
// startup error: provisioning reports them as a configuration failure.
type ZoomConfig struct {
	ClientID        string        `koanf:"client_id"`
	ClientSecret    string        `koanf:"client_secret"`
	AccountID       string        `koanf:"account_id"`
	SDKKey          string        `koanf:"sdk_key"`
	SDKSecret       string        `koanf:"sdk_secret"`
	OAuthUser       string        `koanf:"oauth_user"`
	TokenURL        string        `koanf:"token_url"`
	APIBaseURL      string        `koanf:"api_base_url"`
	DefaultTimezone string        `koanf:"default_timezone"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	SignatureTTL    time.Duration `koanf:"signature_ttl"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type SecurityConfig struct {
	CORSOrigins      []string `koanf:"cors_origins"`
	WebhookRateLimit int      `koanf:"webhook_rate_limit"` // requests per minute per IP
}

// DefaultConfig returns local-development defaults
func DefaultConfig() *Config {
	return &Config{
		Database: dbconfig.DefaultConfig(),
		HTTP: &HTTPConfig{
			Port:            5000,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval:    30 * time.Second,
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    10 * time.Second,
			BufferSize:      100,
			EventsPerMinute: 100,
		},
		Zoom: &ZoomConfig{
			OAuthUser:       "me",
			TokenURL:        "https://zoom.us/oauth/token",
			APIBaseURL:      "https://api.zoom.us/v2",
			DefaultTimezone: "Asia/Kathmandu",
			RequestTimeout:  10 * time.Second,
			SignatureTTL:    2 * time.Minute,
		},
		Auth: &AuthConfig{},
		Logging: &LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: &SecurityConfig{
			CORSOrigins:      []string{"*"},
			WebhookRateLimit: 600,
		},
	}
}

// Validate rejects configurations the process cannot run with
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}
	if c.WebSocket.EventsPerMinute <= 0 {
		return fmt.Errorf("WebSocket events per minute must be positive")
	}

	if c.Zoom == nil {
		return fmt.Errorf("zoom configuration is required")
	}
	if c.Zoom.TokenURL == "" || c.Zoom.APIBaseURL == "" {
		return fmt.Errorf("zoom token and API URLs cannot be empty")
	}
	if c.Zoom.OAuthUser == "" {
		return fmt.Errorf("zoom oauth user cannot be empty")
	}
	if c.Zoom.RequestTimeout <= 0 {
		return fmt.Errorf("zoom request timeout must be positive")
	}
	if c.Zoom.SignatureTTL <= 0 {
		return fmt.Errorf("zoom signature ttl must be positive")
	}
	if _, err := time.LoadLocation(c.Zoom.DefaultTimezone); err != nil {
		return fmt.Errorf("zoom default timezone %q: %w", c.Zoom.DefaultTimezone, err)
	}

	if c.Auth == nil || c.Logging == nil || c.Security == nil {
		return fmt.Errorf("auth, logging and security sections are required")
	}
	if c.Security.WebhookRateLimit <= 0 {
		return fmt.Errorf("webhook rate limit must be positive")
	}

	return nil
}

// ZoomCredentialsLoaded reports whether server-to-server OAuth is configured
func (c *ZoomConfig) ZoomCredentialsLoaded() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.AccountID != ""
}

// FUNCTIONAL DISCOVERY: Environment variable configuration enables deployment flexibility
func LoadFromEnv() *Config {
	config := DefaultConfig()
	applyEnv(config)
	return config
}

type envKind int

const (
	envString envKind = iota
	envInt
	envDuration
	envList
)

type envTarget struct {
	path string
	kind envKind
}

// envFallbacks load first so the names in envMappings win when both are set
var envFallbacks = map[string]envTarget{
	"port":            {"http.port", envInt},
	"zoom_sdk_key":    {"zoom.sdk_key", envString},
	"zoom_sdk_secret": {"zoom.sdk_secret", envString},
}

var envMappings = map[string]envTarget{
	"academy_http_port":             {"http.port", envInt},
	"academy_http_host":             {"http.host", envString},
	"academy_http_read_timeout":     {"http.read_timeout", envDuration},
	"academy_http_write_timeout":    {"http.write_timeout", envDuration},
	"academy_http_shutdown_timeout": {"http.shutdown_timeout", envDuration},

	"academy_database_driver":          {"database.driver", envString},
	"academy_database_path":            {"database.path", envString},
	"database_url":                     {"database.dsn", envString},
	"academy_database_max_connections": {"database.max_connections", envInt},
	"academy_database_write_timeout":   {"database.write_timeout", envDuration},

	"academy_websocket_ping_interval":     {"websocket.ping_interval", envDuration},
	"academy_websocket_read_timeout":      {"websocket.read_timeout", envDuration},
	"academy_websocket_write_timeout":     {"websocket.write_timeout", envDuration},
	"academy_websocket_buffer_size":       {"websocket.buffer_size", envInt},
	"academy_websocket_events_per_minute": {"websocket.events_per_minute", envInt},

	"zoom_client_id":        {"zoom.client_id", envString},
	"zoom_client_secret":    {"zoom.client_secret", envString},
	"zoom_account_id":       {"zoom.account_id", envString},
	"sdk_key":               {"zoom.sdk_key", envString},
	"sdk_secret":            {"zoom.sdk_secret", envString},
	"zoom_oauth_user":       {"zoom.oauth_user", envString},
	"zoom_default_timezone": {"zoom.default_timezone", envString},
	"zoom_request_timeout":  {"zoom.request_timeout", envDuration},

	"jwt_secret": {"auth.jwt_secret", envString},

	"academy_log_level":  {"logging.level", envString},
	"academy_log_format": {"logging.format", envString},

	"academy_cors_origins":       {"security.cors_origins", envList},
	"academy_webhook_rate_limit": {"security.webhook_rate_limit", envInt},
}

// envTransform maps a variable onto its config path. Unknown, empty and
// unparseable values are skipped; the last two with a warning.
func envTransform(table map[string]envTarget) func(string, string) (string, interface{}) {
	return func(key, value string) (string, interface{}) {
		target, ok := table[strings.ToLower(key)]
		if !ok || value == "" {
			return "", nil
		}

		switch target.kind {
		case envInt:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				logging.Warn().Str("env", key).Str("value", value).Msg("ignoring non-integer environment value")
				return "", nil
			}
			return target.path, n
		case envDuration:
			d, err := time.ParseDuration(strings.TrimSpace(value))
			if err != nil {
				logging.Warn().Str("env", key).Str("value", value).Msg("ignoring malformed duration in environment")
				return "", nil
			}
			return target.path, d
		case envList:
			return target.path, splitList(value)
		default:
			return target.path, value
		}
	}
}

// applyEnv overlays recognised environment variables onto config
func applyEnv(config *Config) {
	k := koanf.New(".")
	for _, table := range []map[string]envTarget{envFallbacks, envMappings} {
		if err := k.Load(env.ProviderWithValue("", ".", envTransform(table)), nil); err != nil {
			logging.Warn().Err(err).Msg("failed to read environment configuration")
			return
		}
	}
	// a connection URL implies the networked store
	if k.String("database.dsn") != "" {
		_ = k.Set("database.driver", dbconfig.DriverPostgres)
	}

	if k.Exists("security.cors_origins") {
		config.Security.CORSOrigins = nil
	}

	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		logging.Warn().Err(err).Msg("failed to apply environment configuration")
	}
}

// LoadFromFile reads a YAML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := k.UnmarshalWithConf("", config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}

// LoadConfigWithPrecedence layers defaults < file < environment. A missing
// or broken file is logged and skipped.
func LoadConfigWithPrecedence(path string) *Config {
	config := DefaultConfig()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("ignoring config file")
		} else {
			config = fileConfig
		}
	}

	applyEnv(config)
	return config
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
