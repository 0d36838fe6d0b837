// ABOUTME: Configuration loading and parsing for the FPL chat gateway and client
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Anthropic AnthropicConfig `yaml:"anthropic" toml:"anthropic"`
	FPL       FPLConfig       `yaml:"fpl" toml:"fpl"`
	Tools     ToolsConfig     `yaml:"tools" toml:"tools"`
	History   HistoryConfig   `yaml:"history" toml:"history"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Client    ClientConfig    `yaml:"client" toml:"client"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
}

// AnthropicConfig holds model provider configuration
type AnthropicConfig struct {
	APIKey         string `yaml:"api_key" toml:"api_key"`
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	Model          string `yaml:"model" toml:"model"`
	MaxTokens      int64  `yaml:"max_tokens" toml:"max_tokens"`
	ThinkingBudget int64  `yaml:"thinking_budget" toml:"thinking_budget"`
	MaxTurns       int    `yaml:"max_turns" toml:"max_turns"`
	MaxRetries     int    `yaml:"max_retries" toml:"max_retries"`
	SystemPrompt   string `yaml:"system_prompt" toml:"system_prompt"`
}

// FPLConfig holds the reference data API configuration
type FPLConfig struct {
	BaseURL           string        `yaml:"base_url" toml:"base_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int           `yaml:"burst" toml:"burst"`
	CacheTTL          time.Duration `yaml:"-" toml:"-"`
	BootstrapTTL      time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	CacheTTLRaw     string `yaml:"cache_ttl" toml:"cache_ttl"`
	BootstrapTTLRaw string `yaml:"bootstrap_ttl" toml:"bootstrap_ttl"`
}

// ToolsConfig holds dispatcher configuration
type ToolsConfig struct {
	Concurrency int           `yaml:"concurrency" toml:"concurrency"`
	Timeout     time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw  string        `yaml:"timeout" toml:"timeout"`
}

// HistoryConfig holds conversation persistence configuration
type HistoryConfig struct {
	Backend          string `yaml:"backend" toml:"backend"`
	Path             string `yaml:"path" toml:"path"`
	MaxMessages      int    `yaml:"max_messages" toml:"max_messages"`
	MaxBytes         int    `yaml:"max_bytes" toml:"max_bytes"`
	FallbackMessages int    `yaml:"fallback_messages" toml:"fallback_messages"`
	// QuotaBytes caps a single stored record; zero means unlimited.
	QuotaBytes int `yaml:"quota_bytes" toml:"quota_bytes"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
	// Required rejects /api/chat requests without a valid token.
	Required bool `yaml:"required" toml:"required"`
}

// ClientConfig holds settings for the interactive chat client
type ClientConfig struct {
	GatewayURL     string `yaml:"gateway_url" toml:"gateway_url"`
	ConversationID string `yaml:"conversation_id" toml:"conversation_id"`
	Token          string `yaml:"token" toml:"token"`
	ManagerID      int    `yaml:"manager_id" toml:"manager_id"`
	ShowThinking   bool   `yaml:"show_thinking" toml:"show_thinking"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MCPConfig controls the tool endpoint for external MCP clients
type MCPConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := seed()
	cfg.applyDefaults()
	return &cfg
}

// seed returns the values a file can only switch off.
func seed() Config {
	return Config{Metrics: MetricsConfig{Enabled: true}, MCP: MCPConfig{Enabled: true}}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are parsed as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := seed()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	// Match ${VAR_NAME} pattern
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = "127.0.0.1:8080"
	}
	if c.Anthropic.APIKey == "" {
		c.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if c.Anthropic.MaxTokens == 0 {
		c.Anthropic.MaxTokens = 4096
	}
	if c.Anthropic.MaxTurns == 0 {
		c.Anthropic.MaxTurns = 8
	}
	if c.FPL.BaseURL == "" {
		c.FPL.BaseURL = "https://fantasy.premierleague.com/api"
	}
	if c.FPL.RequestsPerSecond == 0 {
		c.FPL.RequestsPerSecond = 2
	}
	if c.FPL.Burst == 0 {
		c.FPL.Burst = 4
	}
	if c.FPL.CacheTTL == 0 {
		c.FPL.CacheTTL = 5 * time.Minute
	}
	if c.FPL.BootstrapTTL == 0 {
		c.FPL.BootstrapTTL = 15 * time.Minute
	}
	if c.Tools.Concurrency == 0 {
		c.Tools.Concurrency = 4
	}
	if c.Tools.Timeout == 0 {
		c.Tools.Timeout = 30 * time.Second
	}
	if c.History.Backend == "" {
		c.History.Backend = "sqlite"
	}
	if c.History.Path == "" {
		c.History.Path = "data/history.db"
	}
	if c.History.MaxMessages == 0 {
		c.History.MaxMessages = 100
	}
	if c.History.MaxBytes == 0 {
		c.History.MaxBytes = 500 * 1024
	}
	if c.History.FallbackMessages == 0 {
		c.History.FallbackMessages = 20
	}
	if c.Client.GatewayURL == "" {
		c.Client.GatewayURL = "http://" + c.Server.HTTPAddr
	}
	if c.Client.ConversationID == "" {
		c.Client.ConversationID = "default"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Anthropic.MaxTokens <= 0 {
		return fmt.Errorf("anthropic.max_tokens must be positive")
	}
	if c.Anthropic.ThinkingBudget < 0 || (c.Anthropic.ThinkingBudget > 0 && c.Anthropic.ThinkingBudget >= c.Anthropic.MaxTokens) {
		return fmt.Errorf("anthropic.thinking_budget must be between 0 and max_tokens")
	}
	if c.Anthropic.MaxTurns <= 0 {
		return fmt.Errorf("anthropic.max_turns must be positive")
	}

	if c.FPL.RequestsPerSecond <= 0 {
		return fmt.Errorf("fpl.requests_per_second must be positive")
	}
	if c.FPL.Burst <= 0 {
		return fmt.Errorf("fpl.burst must be positive")
	}

	if c.Tools.Concurrency <= 0 {
		return fmt.Errorf("tools.concurrency must be positive")
	}

	if !slices.Contains([]string{"sqlite", "pebble", "memory"}, c.History.Backend) {
		return fmt.Errorf("history.backend must be sqlite, pebble or memory, got %q", c.History.Backend)
	}
	if c.History.Backend != "memory" && c.History.Path == "" {
		return fmt.Errorf("history.path is required for the %s backend", c.History.Backend)
	}
	if c.History.FallbackMessages > c.History.MaxMessages {
		return fmt.Errorf("history.fallback_messages must not exceed history.max_messages")
	}
	if c.History.QuotaBytes < 0 {
		return fmt.Errorf("history.quota_bytes must not be negative")
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.required is set")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"fpl.cache_ttl", cfg.FPL.CacheTTLRaw, &cfg.FPL.CacheTTL},
		{"fpl.bootstrap_ttl", cfg.FPL.BootstrapTTLRaw, &cfg.FPL.BootstrapTTL},
		{"tools.timeout", cfg.Tools.TimeoutRaw, &cfg.Tools.Timeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
