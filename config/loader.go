// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type loadOptions struct {
	llmConfigsPath string
	getenv         func(string) string
}

// LoadOption configures LoadAgentDeployments.
type LoadOption func(*loadOptions)

// WithLLMConfigs resolves llm_config entries by config_name against the LLM
// configs file at path.
func WithLLMConfigs(path string) LoadOption {
	return func(o *loadOptions) {
		o.llmConfigsPath = path
	}
}

// WithGetenv replaces os.Getenv for ${VAR} expansion.
func WithGetenv(getenv func(string) string) LoadOption {
	return func(o *loadOptions) {
		if getenv != nil {
			o.getenv = getenv
		}
	}
}

// LoadAgentDeployments reads a JSON or YAML list of agent deployments.
// String values may reference the environment as ${VAR}, ${VAR:-default} or
// $VAR. Inside agent_config only llm_config is expanded; prompt text is kept
// verbatim. Agent configs are left untyped; they are coerced on first use.
func LoadAgentDeployments(path string, opts ...LoadOption) ([]AgentDeployment, error) {
	o := &loadOptions{getenv: os.Getenv}
	for _, opt := range opts {
		opt(o)
	}

	raw, err := readList(path)
	if err != nil {
		return nil, err
	}

	var llmConfigs map[string]map[string]any
	if o.llmConfigsPath != "" {
		llmConfigs, err = loadLLMConfigs(o.llmConfigsPath, o.getenv)
		if err != nil {
			return nil, err
		}
	}

	deployments := make([]AgentDeployment, 0, len(raw))
	for i, item := range raw {
		entry, ok := expandDeployment(item, o.getenv)
		if !ok {
			return nil, fmt.Errorf("deployment %d in %s: expected an object, got %T", i, path, item)
		}

		if agentConfig, ok := entry["agent_config"].(map[string]any); ok && llmConfigs != nil {
			if err := resolveLLMConfig(agentConfig, llmConfigs); err != nil {
				return nil, fmt.Errorf("deployment %d in %s: %w", i, path, err)
			}
		}

		var deployment AgentDeployment
		if err := decode(entry, &deployment); err != nil {
			return nil, fmt.Errorf("deployment %d in %s: %w", i, path, err)
		}
		deployments = append(deployments, deployment)
	}

	return deployments, nil
}

func loadLLMConfigs(path string, getenv func(string) string) (map[string]map[string]any, error) {
	raw, err := readList(path)
	if err != nil {
		return nil, err
	}

	configs := make(map[string]map[string]any, len(raw))
	for i, item := range raw {
		entry, ok := expandValue(item, getenv).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("llm config %d in %s: expected an object, got %T", i, path, item)
		}
		name, _ := entry["config_name"].(string)
		if name == "" {
			return nil, fmt.Errorf("llm config %d in %s: config_name is required", i, path)
		}
		configs[name] = entry
	}

	return configs, nil
}

// resolveLLMConfig replaces a by-name llm_config reference with the named
// entry. Keys set on the reference itself take precedence.
func resolveLLMConfig(agentConfig map[string]any, llmConfigs map[string]map[string]any) error {
	ref, ok := agentConfig["llm_config"].(map[string]any)
	if !ok {
		return nil
	}
	name, _ := ref["config_name"].(string)
	if name == "" {
		return nil
	}

	base, ok := llmConfigs[name]
	if !ok {
		if _, hasModel := ref["model"]; hasModel {
			return nil
		}
		return fmt.Errorf("%w: unknown llm config %q", ErrInvalidConfig, name)
	}

	merged := make(map[string]any, len(base)+len(ref))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range ref {
		merged[k] = v
	}
	agentConfig["llm_config"] = merged
	return nil
}

func readList(path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var list []any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &list)
	default:
		err = json.Unmarshal(data, &list)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return list, nil
}

// envVarPattern matches ${VAR}, ${VAR:-default} and $VAR.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandDeployment expands a deployment entry. Keys of agent_config other
// than llm_config are copied untouched.
func expandDeployment(item any, getenv func(string) string) (map[string]any, bool) {
	entry, ok := item.(map[string]any)
	if !ok {
		return nil, false
	}

	result := make(map[string]any, len(entry))
	for k, v := range entry {
		if k != "agent_config" {
			result[k] = expandValue(v, getenv)
			continue
		}

		agentConfig, ok := v.(map[string]any)
		if !ok {
			result[k] = v
			continue
		}
		expanded := make(map[string]any, len(agentConfig))
		for ck, cv := range agentConfig {
			if ck == "llm_config" {
				cv = expandValue(cv, getenv)
			}
			expanded[ck] = cv
		}
		result[k] = expanded
	}
	return result, true
}

func expandValue(v any, getenv func(string) string) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val, getenv)
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = expandValue(item, getenv)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = expandValue(item, getenv)
		}
		return result
	default:
		return v
	}
}

func expandEnvString(s string, getenv func(string) string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]
			if name, fallback, ok := strings.Cut(inner, ":-"); ok {
				if value := getenv(name); value != "" {
					return value
				}
				return fallback
			}
			return getenv(inner)
		}
		return getenv(match[1:])
	})
}
