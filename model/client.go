// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package model

import (
	"strings"
)

// Client is the kind of completion backend named by llm_config.client.
type Client int

const (
	// ClientOpenAI is OpenAI or any OpenAI-compatible service keyed by OPENAI_API_KEY.
	ClientOpenAI Client = iota

	// ClientOllama is a local Ollama server; it takes no API key.
	ClientOllama

	// ClientVLLM is a vLLM server; it accepts the placeholder key "EMPTY".
	ClientVLLM
)

// VLLMPlaceholderKey is the key sent to vLLM servers.
const VLLMPlaceholderKey = "EMPTY"

const (
	defaultOllamaBaseURL = "http://localhost:11434/v1"
	defaultVLLMBaseURL   = "http://localhost:8000/v1"
)

// ParseClient maps a client name to its kind. Names other than "ollama" and
// "vllm" resolve to ClientOpenAI; known is false when the name was not
// "openai" or empty, so callers can flag likely typos.
func ParseClient(name string) (client Client, known bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ollama":
		return ClientOllama, true
	case "vllm":
		return ClientVLLM, true
	case "openai", "":
		return ClientOpenAI, true
	default:
		return ClientOpenAI, false
	}
}

func (c Client) String() string {
	switch c {
	case ClientOllama:
		return "ollama"
	case ClientVLLM:
		return "vllm"
	default:
		return "openai"
	}
}

// ResolveAPIKey returns the key to authenticate with. ok is false when the
// client takes no key at all. The OpenAI key is read through getenv on
// every call.
func (c Client) ResolveAPIKey(getenv func(string) string) (key string, ok bool) {
	switch c {
	case ClientOllama:
		return "", false
	case ClientVLLM:
		return VLLMPlaceholderKey, true
	default:
		return getenv("OPENAI_API_KEY"), true
	}
}

// BaseURL returns the endpoint to use for apiBase. An empty apiBase falls back
// to the client's default, which is the library default for OpenAI. Ollama
// serves its OpenAI-compatible API under /v1.
func (c Client) BaseURL(apiBase string) string {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")

	switch c {
	case ClientOllama:
		if apiBase == "" {
			return defaultOllamaBaseURL
		}
		if !strings.HasSuffix(apiBase, "/v1") {
			return apiBase + "/v1"
		}
		return apiBase
	case ClientVLLM:
		if apiBase == "" {
			return defaultVLLMBaseURL
		}
		return apiBase
	default:
		return apiBase
	}
}

// ModelName strips a "<client>/" routing prefix such as "ollama/llama3".
func (c Client) ModelName(model string) string {
	prefixes := []string{c.String() + "/"}
	if c == ClientVLLM {
		prefixes = append(prefixes, "hosted_vllm/")
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(model, prefix) {
			return strings.TrimPrefix(model, prefix)
		}
	}
	return model
}
