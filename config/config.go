// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Package config describes agent deployments and loads them from disk.
package config

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ryichk/task-finalizer-go/schema"
)

var (
	ErrInvalidConfig = errors.New("invalid agent config")
	ErrMissingConfig = errors.New("agent deployment has no agent config")
)

// LLMConfig selects the model and provider used for the completion call.
type LLMConfig struct {
	ConfigName string `json:"config_name,omitempty" yaml:"config_name,omitempty"`

	// Client identifies the provider kind: "openai", "ollama" or "vllm".
	Client string `json:"client" yaml:"client"`

	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`

	// APIBase is the base URL of the completion endpoint. Empty means the
	// provider default.
	APIBase string `json:"api_base,omitempty" yaml:"api_base,omitempty"`
}

// AgentConfig is the configuration shared by every agent deployment.
type AgentConfig struct {
	ConfigName    string         `json:"config_name,omitempty" yaml:"config_name,omitempty"`
	LLMConfig     LLMConfig      `json:"llm_config" yaml:"llm_config"`
	PersonaModule map[string]any `json:"persona_module,omitempty" yaml:"persona_module,omitempty"`

	// SystemPrompt is sent JSON-encoded as the system message. It is usually
	// a string or a mapping such as {"role": ..., "persona": ...}.
	SystemPrompt any `json:"system_prompt" yaml:"system_prompt"`
}

// TaskFinalizerAgentConfig extends AgentConfig with the user message template.
type TaskFinalizerAgentConfig struct {
	AgentConfig `yaml:",inline"`

	// UserMessageTemplate contains the {{task}} and {{objective}} placeholders.
	UserMessageTemplate string `json:"user_message_template" yaml:"user_message_template"`
}

// Validate reports whether the config can drive a completion call.
func (c *TaskFinalizerAgentConfig) Validate() error {
	if c.UserMessageTemplate == "" {
		return fmt.Errorf("%w: user_message_template is required", ErrInvalidConfig)
	}
	if c.LLMConfig.Model == "" {
		return fmt.Errorf("%w: llm_config.model is required", ErrInvalidConfig)
	}
	return nil
}

// AgentDeployment is the host-supplied record describing one agent instance.
type AgentDeployment struct {
	Name   string         `json:"name" yaml:"name"`
	Module map[string]any `json:"module,omitempty" yaml:"module,omitempty"`
	Node   map[string]any `json:"node,omitempty" yaml:"node,omitempty"`

	// AgentConfig is either an untyped mapping, as decoded from a file or a
	// request body, or a *TaskFinalizerAgentConfig.
	AgentConfig any `json:"agent_config" yaml:"agent_config"`
}

// TaskFinalizerConfig returns the typed agent config. An untyped mapping is
// coerced and stored back on the deployment so later calls reuse it.
func (d *AgentDeployment) TaskFinalizerConfig() (*TaskFinalizerAgentConfig, error) {
	var cfg *TaskFinalizerAgentConfig

	switch c := d.AgentConfig.(type) {
	case nil:
		return nil, ErrMissingConfig
	case *TaskFinalizerAgentConfig:
		if c == nil {
			return nil, ErrMissingConfig
		}
		cfg = c
	case TaskFinalizerAgentConfig:
		cfg = &c
	case map[string]any:
		decoded, err := DecodeAgentConfig(c)
		if err != nil {
			return nil, err
		}
		cfg = decoded
	default:
		return nil, fmt.Errorf("%w: unsupported agent config type %T", ErrInvalidConfig, d.AgentConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d.AgentConfig = cfg
	return cfg, nil
}

// DecodeAgentConfig coerces an untyped mapping into a TaskFinalizerAgentConfig.
// Scalars are converted weakly, so "0.2" decodes into a float temperature.
func DecodeAgentConfig(input map[string]any) (*TaskFinalizerAgentConfig, error) {
	cfg := &TaskFinalizerAgentConfig{}
	if err := decode(input, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

func decode(input any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	return nil
}

// AgentRunInput is the record the host hands to the run entry point.
type AgentRunInput struct {
	// ID identifies the run. A fresh one is assigned when empty.
	ID string `json:"id,omitempty"`

	ConsumerID      string             `json:"consumer_id,omitempty"`
	Inputs          schema.InputSchema `json:"inputs"`
	AgentDeployment *AgentDeployment   `json:"agent_deployment,omitempty"`
}
