// Package config provides unified configuration for the agent server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ANTWORT_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Derived defaults and validation
package config

import (
	"strconv"
	"time"
)

// Agent types understood by the server.
const (
	AgentTypeLorem  = "lorem"
	AgentTypeOpenAI = "openai"
)

// Config holds all configuration for the agent server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Engine        EngineConfig        `yaml:"engine"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Agents        []AgentConfig       `yaml:"agents"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 0, streams may run long
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10MB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// EngineConfig holds request routing settings.
type EngineConfig struct {
	// DefaultAgent serves requests that name no agent. When empty and
	// exactly one agent is configured, that agent becomes the default.
	DefaultAgent string `yaml:"default_agent"`
}

// OpenAIConfig holds backend settings shared by all openai agents. Per-agent
// values take precedence.
type OpenAIConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"` // _file variant for api_key
}

// AgentConfig describes one served agent.
type AgentConfig struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"` // "lorem" or "openai"
	Description string `yaml:"description" json:"description"`

	// openai agents
	Model        string `yaml:"model" json:"model"`
	BaseURL      string `yaml:"base_url" json:"base_url"`
	APIKey       string `yaml:"api_key" json:"api_key"`
	APIKeyFile   string `yaml:"api_key_file" json:"api_key_file"` // _file variant for api_key
	Instructions string `yaml:"instructions" json:"instructions"`

	// lorem agents
	Words      int           `yaml:"words" json:"words"`
	Delay      time.Duration `yaml:"delay" json:"delay"`
	CountWords bool          `yaml:"count_words" json:"count_words"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log settings. ANTWORT_LOG_LEVEL and ANTWORT_DEBUG
// take precedence over these values.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Debug  string `yaml:"debug"`  // comma-separated debug categories
	Format string `yaml:"format"` // text or json; default: text
}

// Defaults returns a Config with all default values filled in. Without any
// configured agents the server runs a single lorem agent.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 30 * time.Second,
		},
		Agents: []AgentConfig{
			{Name: "lorem", Type: AgentTypeLorem},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// Addr returns the listen address for the configured port.
func (s ServerConfig) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}
