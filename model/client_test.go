// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClient(t *testing.T) {
	cases := []struct {
		name   string
		client Client
		known  bool
	}{
		{"ollama", ClientOllama, true},
		{"OLLAMA", ClientOllama, true},
		{"vllm", ClientVLLM, true},
		{"openai", ClientOpenAI, true},
		{"", ClientOpenAI, true},
		{"anthropic", ClientOpenAI, false},
		{"olama", ClientOpenAI, false},
	}

	for _, tc := range cases {
		client, known := ParseClient(tc.name)
		assert.Equal(t, tc.client, client, "client for %q", tc.name)
		assert.Equal(t, tc.known, known, "known for %q", tc.name)
	}
}

func TestResolveAPIKey(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "sk-test"}
	getenv := func(k string) string { return env[k] }

	key, ok := ClientOllama.ResolveAPIKey(getenv)
	assert.False(t, ok, "ollama takes no key")
	assert.Empty(t, key)

	key, ok = ClientVLLM.ResolveAPIKey(getenv)
	assert.True(t, ok)
	assert.Equal(t, "EMPTY", key)

	key, ok = ClientOpenAI.ResolveAPIKey(getenv)
	assert.True(t, ok)
	assert.Equal(t, "sk-test", key)

	// The key is read at call time.
	env["OPENAI_API_KEY"] = "sk-rotated"
	key, _ = ClientOpenAI.ResolveAPIKey(getenv)
	assert.Equal(t, "sk-rotated", key)

	unknown, _ := ParseClient("together")
	key, ok = unknown.ResolveAPIKey(getenv)
	assert.True(t, ok)
	assert.Equal(t, "sk-rotated", key)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", ClientOllama.BaseURL(""))
	assert.Equal(t, "http://ollama:11434/v1", ClientOllama.BaseURL("http://ollama:11434"))
	assert.Equal(t, "http://ollama:11434/v1", ClientOllama.BaseURL("http://ollama:11434/v1/"))
	assert.Equal(t, "http://localhost:8000/v1", ClientVLLM.BaseURL(""))
	assert.Equal(t, "http://vllm:8000/v1", ClientVLLM.BaseURL("http://vllm:8000/v1"))
	assert.Equal(t, "", ClientOpenAI.BaseURL(""))
	assert.Equal(t, "https://api.example.test/v1", ClientOpenAI.BaseURL("https://api.example.test/v1/"))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "llama3", ClientOllama.ModelName("ollama/llama3"))
	assert.Equal(t, "llama3", ClientOllama.ModelName("llama3"))
	assert.Equal(t, "Qwen/Qwen2-7B", ClientVLLM.ModelName("hosted_vllm/Qwen/Qwen2-7B"))
	assert.Equal(t, "Qwen/Qwen2-7B", ClientVLLM.ModelName("vllm/Qwen/Qwen2-7B"))
	assert.Equal(t, "gpt-4o-mini", ClientOpenAI.ModelName("openai/gpt-4o-mini"))
	assert.Equal(t, "ollama/llama3", ClientOpenAI.ModelName("ollama/llama3"))
}
