// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/metrics"
	"github.com/ryichk/task-finalizer-go/model"
	"github.com/ryichk/task-finalizer-go/schema"
	"github.com/ryichk/task-finalizer-go/tool"
	"github.com/ryichk/task-finalizer-go/tracing"
)

const (
	// ExecuteTaskToolName is the command name of ExecuteTask
	ExecuteTaskToolName = "execute_task"

	taskPlaceholder      = "{{task}}"
	objectivePlaceholder = "{{objective}}"
)

var ErrNilDeployment = errors.New("agent deployment is required")

// ProviderFactory creates the completion provider for one call
type ProviderFactory func(cfg model.OpenAIConfig) (model.Provider, error)

// TaskFinalizerAgent finalizes a task against an objective using one chat
// completion. It is bound to a single deployment and holds no other state.
type TaskFinalizerAgent struct {
	// The name of the agent, taken from the deployment.
	Name string

	deployment  *config.AgentDeployment
	hooks       Hooks
	logger      *slog.Logger
	getenv      func(string) string
	newProvider ProviderFactory
	metrics     *metrics.Recorder
}

// Option configures a TaskFinalizerAgent
type Option func(*TaskFinalizerAgent)

// WithProviderFactory replaces the go-openai backed provider
func WithProviderFactory(factory ProviderFactory) Option {
	return func(a *TaskFinalizerAgent) {
		a.newProvider = factory
	}
}

func WithHooks(hooks Hooks) Option {
	return func(a *TaskFinalizerAgent) {
		a.hooks = hooks
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *TaskFinalizerAgent) {
		a.logger = logger
	}
}

// WithGetenv replaces os.Getenv for API key lookup
func WithGetenv(getenv func(string) string) Option {
	return func(a *TaskFinalizerAgent) {
		a.getenv = getenv
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *TaskFinalizerAgent) {
		a.metrics = recorder
	}
}

// New binds an agent to deployment
func New(deployment *config.AgentDeployment, opts ...Option) (*TaskFinalizerAgent, error) {
	if deployment == nil {
		return nil, ErrNilDeployment
	}

	a := &TaskFinalizerAgent{
		Name:        deployment.Name,
		deployment:  deployment,
		hooks:       &BaseAgentHooks{},
		logger:      slog.Default(),
		getenv:      os.Getenv,
		newProvider: defaultProvider,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func defaultProvider(cfg model.OpenAIConfig) (model.Provider, error) {
	provider, err := model.NewOpenAIProvider(cfg)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// Deployment returns the deployment the agent is bound to
func (a *TaskFinalizerAgent) Deployment() *config.AgentDeployment {
	return a.deployment
}

// Tools returns the commands the agent exposes, keyed by name in the runner
func (a *TaskFinalizerAgent) Tools() ([]tool.Tool, error) {
	executeTask, err := tool.NewTypedTool(
		ExecuteTaskToolName,
		"Finalize a task against its objective and propose follow-up tasks",
		a.ExecuteTask,
	)
	if err != nil {
		return nil, err
	}

	return []tool.Tool{executeTask}, nil
}

// BuildUserPrompt substitutes {{task}} and then {{objective}} into template.
// Substitution is literal; no other placeholders are interpreted.
func BuildUserPrompt(template string, input schema.TaskExecutorPromptSchema) string {
	prompt := strings.ReplaceAll(template, taskPlaceholder, input.Task)
	return strings.ReplaceAll(prompt, objectivePlaceholder, input.Objective)
}

// BuildMessages returns the system message, holding the JSON encoding of the
// configured system prompt, followed by the user prompt.
func BuildMessages(cfg *config.TaskFinalizerAgentConfig, input schema.TaskExecutorPromptSchema) ([]model.Message, error) {
	systemPrompt, err := encodeJSON(cfg.SystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode system prompt: %w", err)
	}

	return []model.Message{
		{Role: model.RoleSystem, Content: systemPrompt},
		{Role: model.RoleUser, Content: BuildUserPrompt(cfg.UserMessageTemplate, input)},
	}, nil
}

// ExecuteTask sends the formatted prompt to the configured model and parses
// the reply. A reply that is not a well-formed result is returned as the
// final report with no new tasks; provider and config failures are errors.
func (a *TaskFinalizerAgent) ExecuteTask(ctx context.Context, input schema.TaskExecutorPromptSchema) (schema.TaskFinalizer, error) {
	cfg, err := a.deployment.TaskFinalizerConfig()
	if err != nil {
		return schema.TaskFinalizer{}, fmt.Errorf("invalid agent config: %w", err)
	}

	span, ctx := tracing.StartSpan(ctx, ExecuteTaskToolName, map[string]any{
		"agent.name": a.Name,
		"llm.client": cfg.LLMConfig.Client,
		"llm.model":  cfg.LLMConfig.Model,
	})
	defer span.End()

	if err := a.hooks.OnStart(ctx, a, input); err != nil {
		span.RecordError(err)
		return schema.TaskFinalizer{}, fmt.Errorf("error in OnStart hook: %w", err)
	}

	messages, err := BuildMessages(cfg, input)
	if err != nil {
		span.RecordError(err)
		return schema.TaskFinalizer{}, err
	}

	client, known := model.ParseClient(cfg.LLMConfig.Client)
	if !known {
		a.logger.Warn("Unknown LLM client, using OpenAI credentials", "client", cfg.LLMConfig.Client)
	}
	apiKey, _ := client.ResolveAPIKey(a.getenv)

	provider, err := a.newProvider(model.OpenAIConfig{
		Client:  client,
		APIKey:  apiKey,
		BaseURL: cfg.LLMConfig.APIBase,
	})
	if err != nil {
		span.RecordError(err)
		return schema.TaskFinalizer{}, fmt.Errorf("failed to create %s provider: %w", client, err)
	}

	resp, err := a.complete(ctx, provider, client, messages, model.Settings{
		Model:       cfg.LLMConfig.Model,
		Temperature: cfg.LLMConfig.Temperature,
		MaxTokens:   cfg.LLMConfig.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return schema.TaskFinalizer{}, err
	}

	parsed := schema.ParseTaskFinalizer(resp.Message.Content)
	result := parsed.Result()

	outcome := metrics.OutcomeStructured
	if unstructured, ok := parsed.(schema.Unstructured); ok {
		outcome = metrics.OutcomeUnstructured
		a.logger.Debug("Model reply is not a structured result", "error", unstructured.Err)
	}
	a.metrics.ObserveParse(outcome == metrics.OutcomeStructured)

	lang := detectLanguage(result.FinalReport)
	a.logger.Info("Response",
		"agent", a.Name,
		"response", result,
		"parse_outcome", outcome,
		"report_language", lang,
	)
	span.SetAttributes(map[string]any{
		"parse.outcome":        outcome,
		"result.objective_met": result.ObjectiveMet,
		"result.new_tasks":     len(result.NewTasks),
		"result.language":      lang,
	})

	if err := a.hooks.OnEnd(ctx, a, result); err != nil {
		span.RecordError(err)
		return schema.TaskFinalizer{}, fmt.Errorf("error in OnEnd hook: %w", err)
	}

	return result, nil
}

func (a *TaskFinalizerAgent) complete(ctx context.Context, provider model.Provider, client model.Client, messages []model.Message, settings model.Settings) (*model.Response, error) {
	span, ctx := tracing.StartSpan(ctx, "llm_completion", map[string]any{
		"llm.client": client.String(),
		"llm.model":  settings.Model,
	})
	defer span.End()

	start := time.Now()
	resp, err := provider.CreateChatCompletion(ctx, messages, settings)
	a.metrics.ObserveLLMRequest(client.String(), time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	a.metrics.ObserveTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	span.SetAttributes(map[string]any{
		"llm.usage.prompt_tokens":     resp.Usage.PromptTokens,
		"llm.usage.completion_tokens": resp.Usage.CompletionTokens,
	})

	return resp, nil
}

// detectLanguage returns the ISO 639-3 code of text, or "" when detection is
// unreliable.
func detectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6393()
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
