// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package model

import (
	"context"
	"fmt"
	"math"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig represents provider configuration for an OpenAI-compatible endpoint
type OpenAIConfig struct {
	// Client is the kind of backend being called
	Client Client

	// APIKey is the key to send. It is ignored for Ollama.
	APIKey string

	// BaseURL is the custom base URL (optional)
	BaseURL string

	// HTTPClient overrides the HTTP client (optional)
	HTTPClient *http.Client
}

type OpenAIProvider struct {
	config OpenAIConfig
	client *openai.Client
}

func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.Client == ClientOpenAI && config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.Client == ClientOllama {
		config.APIKey = ""
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if baseURL := config.Client.BaseURL(config.BaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if config.HTTPClient != nil {
		clientConfig.HTTPClient = config.HTTPClient
	}

	return &OpenAIProvider{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

func (p *OpenAIProvider) CreateChatCompletion(ctx context.Context, messages []Message, settings Settings) (*Response, error) {
	request := openai.ChatCompletionRequest{
		Model:       p.config.Client.ModelName(settings.Model),
		Messages:    convertToOpenAIMessages(messages),
		Temperature: requestTemperature(settings.Temperature),
		MaxTokens:   settings.MaxTokens,
	}

	result, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%s API call failed: %w", p.config.Client, err)
	}

	if len(result.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := result.Choices[0]

	return &Response{
		Message: Message{
			Role:    choice.Message.Role,
			Content: choice.Message.Content,
		},
		Usage: Usage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
		},
	}, nil
}

// requestTemperature maps 0 to the smallest positive float32 so the field
// survives go-openai's omitempty tag and the backend does not apply its default.
func requestTemperature(temperature float64) float32 {
	if temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(temperature)
}

// convertToOpenAIMessages converts messages to OpenAI format
func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}
	return result
}
