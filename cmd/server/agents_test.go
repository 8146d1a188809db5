package main

import (
	"testing"

	"github.com/rhuss/antwort-agents/pkg/config"
)

func TestBuildAgents(t *testing.T) {
	cfg := config.Defaults()
	cfg.Agents = []config.AgentConfig{
		{Name: "lorem", Type: config.AgentTypeLorem, Words: 3},
		{Name: "chat", Type: config.AgentTypeOpenAI, Model: "gpt-4o", BaseURL: "http://localhost:4000/v1"},
	}

	reg, err := buildAgents(&cfg)
	if err != nil {
		t.Fatalf("buildAgents: %v", err)
	}
	names := reg.Names()
	if len(names) != 2 || names[0] != "chat" || names[1] != "lorem" {
		t.Errorf("names = %v", names)
	}
}

func TestBuildAgentsErrors(t *testing.T) {
	tests := []struct {
		name   string
		agents []config.AgentConfig
	}{
		{"unknown type", []config.AgentConfig{{Name: "x", Type: "other"}}},
		{"openai without model", []config.AgentConfig{{Name: "x", Type: config.AgentTypeOpenAI}}},
		{"duplicate", []config.AgentConfig{
			{Name: "x", Type: config.AgentTypeLorem},
			{Name: "x", Type: config.AgentTypeLorem},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Agents = tt.agents
			if _, err := buildAgents(&cfg); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadEnvFileMissing(t *testing.T) {
	if err := loadEnvFile(t.TempDir() + "/does-not-exist.env"); err != nil {
		t.Errorf("missing env file: %v", err)
	}
}
