// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package testutil

import (
	"context"
	"sync"

	"github.com/ryichk/task-finalizer-go/model"
)

// FakeProvider is a model.Provider that returns a canned reply and records
// every call it receives.
type FakeProvider struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []FakeCall
	configs  []model.OpenAIConfig
}

// FakeCall is one recorded completion request
type FakeCall struct {
	Messages []model.Message
	Settings model.Settings
}

func NewFakeProvider(response string) *FakeProvider {
	return &FakeProvider{response: response}
}

// SetResponse changes the reply content for subsequent calls
func (p *FakeProvider) SetResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.response = response
	p.err = nil
}

// SetError makes subsequent calls fail with err
func (p *FakeProvider) SetError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *FakeProvider) CreateChatCompletion(ctx context.Context, messages []model.Message, settings model.Settings) (*model.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, FakeCall{
		Messages: append([]model.Message(nil), messages...),
		Settings: settings,
	})

	if p.err != nil {
		return nil, p.err
	}

	return &model.Response{
		Message: model.Message{Role: model.RoleAssistant, Content: p.response},
		Usage: model.Usage{
			PromptTokens:     100,
			CompletionTokens: 50,
			TotalTokens:      150,
		},
	}, nil
}

// Factory returns a provider factory that records the config it was given
// and always hands back p.
func (p *FakeProvider) Factory() func(model.OpenAIConfig) (model.Provider, error) {
	return func(cfg model.OpenAIConfig) (model.Provider, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.configs = append(p.configs, cfg)
		return p, nil
	}
}

// Calls returns the recorded completion requests
func (p *FakeProvider) Calls() []FakeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FakeCall(nil), p.calls...)
}

// LastCall returns the most recent request, or the zero value when none was made
func (p *FakeProvider) LastCall() FakeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return FakeCall{}
	}
	return p.calls[len(p.calls)-1]
}

// Configs returns the provider configs passed to Factory
func (p *FakeProvider) Configs() []model.OpenAIConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OpenAIConfig(nil), p.configs...)
}
