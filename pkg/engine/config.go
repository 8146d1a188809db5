package engine

import "github.com/rhuss/antwort-agents/pkg/api"

// Config holds configuration for the engine.
type Config struct {
	// DefaultAgent serves requests that name no agent in the path or the
	// model field. Empty means an agent must always be named.
	DefaultAgent string

	// Validation holds the request validation limits. The zero value
	// selects api.DefaultValidationConfig.
	Validation api.ValidationConfig
}

func (c Config) validation() api.ValidationConfig {
	if c.Validation == (api.ValidationConfig{}) {
		return api.DefaultValidationConfig()
	}
	return c.Validation
}
