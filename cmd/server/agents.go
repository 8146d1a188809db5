package main

import (
	"fmt"

	"github.com/rhuss/antwort-agents/pkg/agent"
	"github.com/rhuss/antwort-agents/pkg/agent/lorem"
	"github.com/rhuss/antwort-agents/pkg/agent/openaichat"
	"github.com/rhuss/antwort-agents/pkg/config"
)

// buildAgents creates the configured agents and registers them.
func buildAgents(cfg *config.Config) (*agent.Registry, error) {
	reg, err := agent.NewRegistry()
	if err != nil {
		return nil, err
	}
	for i, ac := range cfg.Agents {
		a, err := newAgent(ac)
		if err != nil {
			return nil, fmt.Errorf("agents[%d] (%s): %w", i, ac.Name, err)
		}
		if err := reg.Register(a); err != nil {
			return nil, fmt.Errorf("agents[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func newAgent(ac config.AgentConfig) (agent.Agent, error) {
	switch ac.Type {
	case config.AgentTypeLorem:
		return lorem.New(lorem.Config{
			Name:        ac.Name,
			Description: ac.Description,
			Words:       ac.Words,
			Delay:       ac.Delay,
			CountWords:  ac.CountWords,
		})
	case config.AgentTypeOpenAI:
		return openaichat.New(openaichat.Config{
			Name:         ac.Name,
			Description:  ac.Description,
			Model:        ac.Model,
			BaseURL:      ac.BaseURL,
			APIKey:       ac.APIKey,
			Instructions: ac.Instructions,
		})
	default:
		return nil, fmt.Errorf("unknown agent type %q", ac.Type)
	}
}
