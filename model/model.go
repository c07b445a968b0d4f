// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package model

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	ErrMissingAPIKey = errors.New("OpenAI API key is required")
	ErrNoChoices     = errors.New("no response from model")
)

// Settings represents model settings for one completion call
type Settings struct {
	// Model is the model name sent to the provider
	Model string

	// Temperature sets the generation temperature (0.0-2.0)
	Temperature float64

	// MaxTokens sets the maximum number of tokens to generate. Zero leaves it
	// to the provider.
	MaxTokens int
}

// Message represents a chat message
type Message struct {
	// Role is the role of the message (system, user, assistant)
	Role    string
	Content string
}

// Provider is the interface for model providers
type Provider interface {
	CreateChatCompletion(ctx context.Context, messages []Message, settings Settings) (*Response, error)
}

// Response represents a model response
type Response struct {
	Message Message
	Usage   Usage
}

// Usage represents token usage
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
