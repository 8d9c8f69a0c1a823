// Package config provides configuration management for the chat console.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/cchalm/chat-console/internal/backend"
)

// Backend mode names accepted by CHAT_DEFAULT_BACKEND. When it is unset the first configured
// backend, in this order, is the default.
const (
	BackendLegacy = backend.ModeLegacy
	BackendAgent  = backend.ModeAgent
	BackendClaude = backend.ModeClaude
)

// Config holds the configuration for the chat console
type Config struct {
	LegacyURL      string // Base URL of the legacy chat service; requests go to {LegacyURL}/api/chat
	AgentURL       string // Full URL of the agent endpoint
	DefaultBackend string
	RequestTimeout time.Duration
	Greeting       string
	LogFile        string

	AnthropicAPIKey    string
	AnthropicModel     string
	AnthropicBaseURL   string
	AnthropicMaxTokens int64

	TelemetryEnabled  bool
	TelemetryEndpoint string
	TelemetryInsecure bool
}

// LoadDotEnv loads variables from a .env file in the working directory, if there is one. Variables
// already set in the environment take precedence.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load loads configuration from environment variables. Unparseable values are reported rather than
// silently replaced with defaults.
func Load() (Config, error) {
	config := Config{
		LegacyURL:          os.Getenv("CHAT_LEGACY_URL"),
		AgentURL:           os.Getenv("CHAT_AGENT_URL"),
		RequestTimeout:     60 * time.Second,
		Greeting:           os.Getenv("CHAT_GREETING"),
		LogFile:            "chat-console.log",
		AnthropicAPIKey:    os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:     "claude-sonnet-4-0",
		AnthropicBaseURL:   "https://api.anthropic.com",
		AnthropicMaxTokens: 1024,
		TelemetryEndpoint:  "localhost:4318",
		TelemetryInsecure:  true,
	}

	loadOptional(&config.DefaultBackend, "CHAT_DEFAULT_BACKEND")
	loadOptional(&config.LogFile, "CHAT_LOG_FILE")
	loadOptional(&config.AnthropicModel, "ANTHROPIC_MODEL")
	loadOptional(&config.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	loadOptional(&config.TelemetryEndpoint, "OTLP_ENDPOINT")
	config.DefaultBackend = strings.ToLower(strings.TrimSpace(config.DefaultBackend))
	config.ResolveDefaultBackend()

	errs := []error{
		parseOptional(&config.RequestTimeout, "CHAT_REQUEST_TIMEOUT", time.ParseDuration),
		parseOptional(&config.AnthropicMaxTokens, "ANTHROPIC_MAX_TOKENS", func(v string) (int64, error) {
			return strconv.ParseInt(v, 10, 64)
		}),
		parseOptional(&config.TelemetryEnabled, "TELEMETRY_ENABLED", strconv.ParseBool),
		parseOptional(&config.TelemetryInsecure, "OTLP_INSECURE", strconv.ParseBool),
	}
	for _, err := range errs {
		if err != nil {
			return Config{}, err
		}
	}

	return config, nil
}

// Backends returns the backend modes this configuration enables, in toggle order
func (c Config) Backends() []string {
	var backends []string
	if c.LegacyURL != "" {
		backends = append(backends, BackendLegacy)
	}
	if c.AgentURL != "" {
		backends = append(backends, BackendAgent)
	}
	if c.AnthropicAPIKey != "" {
		backends = append(backends, BackendClaude)
	}
	return backends
}

// ResolveDefaultBackend selects the first configured backend when no default backend was chosen
func (c *Config) ResolveDefaultBackend() {
	if c.DefaultBackend != "" {
		return
	}
	if backends := c.Backends(); len(backends) > 0 {
		c.DefaultBackend = backends[0]
	}
}

// Validate checks if the required configuration is present
func (c Config) Validate() error {
	if c.LegacyURL == "" && c.AgentURL == "" && c.AnthropicAPIKey == "" {
		return fmt.Errorf("missing required environment variable: at least one of CHAT_LEGACY_URL, CHAT_AGENT_URL or ANTHROPIC_API_KEY must be set")
	}
	switch c.DefaultBackend {
	case BackendLegacy, BackendAgent, BackendClaude:
	default:
		return fmt.Errorf("unknown default backend '%s', expected one of %s, %s, %s", c.DefaultBackend, BackendLegacy, BackendAgent, BackendClaude)
	}
	enabled := false
	for _, b := range c.Backends() {
		if b == c.DefaultBackend {
			enabled = true
		}
	}
	if !enabled {
		return fmt.Errorf("default backend '%s' is not configured", c.DefaultBackend)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.AnthropicAPIKey != "" && c.AnthropicMaxTokens <= 0 {
		return fmt.Errorf("ANTHROPIC_MAX_TOKENS must be positive, got %d", c.AnthropicMaxTokens)
	}
	if c.TelemetryEnabled && c.TelemetryEndpoint == "" {
		return fmt.Errorf("missing required environment variable: OTLP_ENDPOINT")
	}
	return nil
}

func loadOptional(dest *string, key string) {
	_ = parseOptional(dest, key, func(v string) (string, error) { return v, nil })
}

func parseOptional[T any](dest *T, key string, parseFn func(string) (T, error)) error {
	str := os.Getenv(key)
	if str == "" {
		return nil // Leave default value
	}
	v, err := parseFn(str)
	if err != nil {
		return fmt.Errorf("failed to parse environment variable '%s' value '%s' as '%T': %w", key, str, *dest, err)
	}
	*dest = v
	return nil
}
