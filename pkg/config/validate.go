package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be a valid TCP port.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server timeouts must not be negative"))
	}

	if len(c.Agents) == 0 {
		errs = append(errs, errors.New("agents: at least one agent is required"))
	}

	names := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		field := fmt.Sprintf("agents[%d]", i)
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", field))
		} else if names[a.Name] {
			errs = append(errs, fmt.Errorf("%s.name %q is used by more than one agent", field, a.Name))
		}
		names[a.Name] = true

		switch a.Type {
		case AgentTypeLorem:
			if a.Words < 0 {
				errs = append(errs, fmt.Errorf("%s.words must not be negative, got %d", field, a.Words))
			}
			if a.Delay < 0 {
				errs = append(errs, fmt.Errorf("%s.delay must not be negative, got %s", field, a.Delay))
			}
		case AgentTypeOpenAI:
			if a.Model == "" {
				errs = append(errs, fmt.Errorf("%s.model is required for openai agents", field))
			}
			if a.BaseURL == "" {
				errs = append(errs, fmt.Errorf("%s.base_url (or openai.base_url) is required for openai agents", field))
			}
		default:
			errs = append(errs, fmt.Errorf("%s.type must be %q or %q, got %q", field, AgentTypeLorem, AgentTypeOpenAI, a.Type))
		}
	}

	// engine.default_agent must name a configured agent if set.
	if c.Engine.DefaultAgent != "" && !names[c.Engine.DefaultAgent] {
		errs = append(errs, fmt.Errorf("engine.default_agent %q is not a configured agent", c.Engine.DefaultAgent))
	}

	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		errs = append(errs, errors.New("observability.metrics.path is required when metrics are enabled"))
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
