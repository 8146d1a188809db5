package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/antwort-agents/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ANTWORT_CONFIG env, ./config.yaml, /etc/antwort/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Derived defaults
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log(debug.Config, "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	applyDerivedDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	debug.Log(debug.Config, "configuration ready",
		"port", cfg.Server.Port,
		"agents", len(cfg.Agents),
		"default_agent", cfg.Engine.DefaultAgent,
	)
	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ANTWORT_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/antwort/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("ANTWORT_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/antwort/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values;
// an agents list replaces the default agents entirely.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("ANTWORT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ANTWORT_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("ANTWORT_DEFAULT_AGENT"); v != "" {
		cfg.Engine.DefaultAgent = v
	}
	if v := os.Getenv("ANTWORT_OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("ANTWORT_OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}

	// ANTWORT_AGENTS: JSON array of agent configs, replacing the list.
	if v := os.Getenv("ANTWORT_AGENTS"); v != "" {
		agents, err := parseAgentsJSON(v)
		if err != nil {
			return err
		}
		cfg.Agents = agents
	}
	return nil
}

// parseAgentsJSON parses a JSON array of agent configurations. Delays are
// given as duration strings such as "50ms".
func parseAgentsJSON(jsonStr string) ([]AgentConfig, error) {
	var raw []struct {
		AgentConfig
		Delay string `json:"delay"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing ANTWORT_AGENTS JSON: %w", err)
	}

	agents := make([]AgentConfig, len(raw))
	for i, r := range raw {
		agents[i] = r.AgentConfig
		if r.Delay != "" {
			d, err := time.ParseDuration(r.Delay)
			if err != nil {
				return nil, fmt.Errorf("parsing ANTWORT_AGENTS JSON: agents[%d].delay: %w", i, err)
			}
			agents[i].Delay = d
		}
	}
	return agents, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// openai.api_key_file -> openai.api_key
	if cfg.OpenAI.APIKeyFile != "" && cfg.OpenAI.APIKey == "" {
		val, err := readSecretFile(cfg.OpenAI.APIKeyFile)
		if err != nil {
			return fmt.Errorf("openai.api_key_file: %w", err)
		}
		cfg.OpenAI.APIKey = val
	}

	// agents[*].api_key_file -> agents[*].api_key
	for i := range cfg.Agents {
		if cfg.Agents[i].APIKeyFile != "" && cfg.Agents[i].APIKey == "" {
			val, err := readSecretFile(cfg.Agents[i].APIKeyFile)
			if err != nil {
				return fmt.Errorf("agents[%d].api_key_file: %w", i, err)
			}
			cfg.Agents[i].APIKey = val
		}
	}
	return nil
}

// applyDerivedDefaults fills values that depend on other settings: shared
// openai backend settings and the default agent.
func applyDerivedDefaults(cfg *Config) {
	for i := range cfg.Agents {
		a := &cfg.Agents[i]
		if a.Type != AgentTypeOpenAI {
			continue
		}
		if a.BaseURL == "" {
			a.BaseURL = cfg.OpenAI.BaseURL
		}
		if a.APIKey == "" {
			a.APIKey = cfg.OpenAI.APIKey
		}
	}

	if cfg.Engine.DefaultAgent == "" && len(cfg.Agents) == 1 {
		cfg.Engine.DefaultAgent = cfg.Agents[0].Name
	}
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
