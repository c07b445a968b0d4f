// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"

	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/logging"
	"github.com/ryichk/task-finalizer-go/metrics"
	"github.com/ryichk/task-finalizer-go/model"
	"github.com/ryichk/task-finalizer-go/schema"
	"github.com/ryichk/task-finalizer-go/testutil"
)

const londonTask = "Weather pattern between year 1900 and 2000"

const londonObjective = "Write a blog post about the weather in London."

func newDeployment(client string) *config.AgentDeployment {
	return &config.AgentDeployment{
		Name: "task_finalizer_agent",
		AgentConfig: map[string]any{
			"llm_config": map[string]any{
				"client":      client,
				"model":       "gpt-4o-mini",
				"temperature": 0.7,
				"max_tokens":  1000,
			},
			"system_prompt":         "You are a helpful AI assistant.",
			"user_message_template": "Task: {{task}}, Goal: {{objective}}",
		},
	}
}

func newRunInput(toolName string, deployment *config.AgentDeployment) config.AgentRunInput {
	return config.AgentRunInput{
		ConsumerID: "consumer-1",
		Inputs: schema.InputSchema{
			ToolName: toolName,
			ToolInputData: schema.TaskExecutorPromptSchema{
				Task:      londonTask,
				Objective: londonObjective,
			},
		},
		AgentDeployment: deployment,
	}
}

func testRunConfig(provider *testutil.FakeProvider) RunConfig {
	env := map[string]string{"OPENAI_API_KEY": "sk-test"}
	return RunConfig{
		Logger:          logging.Discard(),
		ProviderFactory: provider.Factory(),
		Getenv:          func(key string) string { return env[key] },
	}
}

func TestParseCommand(t *testing.T) {
	command, err := ParseCommand("execute_task")
	require.NoError(t, err)
	assert.Equal(t, CommandExecuteTask, command)

	for _, name := range []string{"", "Execute_Task", "execute_task ", "run", "ExecuteTask"} {
		_, err := ParseCommand(name)
		assert.ErrorIs(t, err, ErrUnknownTool, name)
	}
}

func TestRunExecuteTask(t *testing.T) {
	provider := testutil.NewFakeProvider(`{"final_report":"Sunny, go to the park.","new_tasks":[],"objective_met":true}`)

	output, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), testRunConfig(provider))
	require.NoError(t, err)
	assert.Equal(t, `{"final_report":"Sunny, go to the park.","new_tasks":[],"objective_met":true}`, output)

	call := provider.LastCall()
	require.Len(t, call.Messages, 2)
	assert.Equal(t, "Task: "+londonTask+", Goal: "+londonObjective, call.Messages[1].Content)
	assert.NotContains(t, call.Messages[1].Content, "{{")
	assert.Equal(t, `"You are a helpful AI assistant."`, call.Messages[0].Content)
}

func TestRunRoundTrip(t *testing.T) {
	bodies := []string{
		`{"final_report":"","new_tasks":[],"objective_met":false}`,
		`{"final_report":"r","new_tasks":[{"name":"a","description":"b","done":true,"result":"c"}],"objective_met":true}`,
		`{"final_report":"multi\nline","new_tasks":[{"name":"x","description":"y","done":false,"result":""},{"name":"z","description":"w","done":false,"result":""}],"objective_met":false}`,
	}

	for _, body := range bodies {
		provider := testutil.NewFakeProvider(body)
		output, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), testRunConfig(provider))
		require.NoError(t, err)
		assert.JSONEq(t, body, output)
	}
}

func TestRunFallback(t *testing.T) {
	provider := testutil.NewFakeProvider("It will rain; bring a coat.")

	output, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), testRunConfig(provider))
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, map[string]any{
		"final_report":  "It will rain; bring a coat.",
		"new_tasks":     []any{},
		"objective_met": false,
	}, result)
}

func TestRunUnknownTool(t *testing.T) {
	provider := testutil.NewFakeProvider("{}")
	reg := prometheus.NewRegistry()
	cfg := testRunConfig(provider)
	cfg.Metrics = metrics.MustNewRecorder(reg)

	output, err := RunWithConfig(context.Background(), newRunInput("summarize", newDeployment("openai")), cfg)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Empty(t, output)
	assert.Empty(t, provider.Calls())

	count, err := promtestutil.GatherAndCount(reg, "task_finalizer_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunAPIKeySelection(t *testing.T) {
	tests := []struct {
		client  string
		wantKey string
	}{
		{client: "openai", wantKey: "sk-test"},
		{client: "ollama", wantKey: ""},
		{client: "vllm", wantKey: "EMPTY"},
		{client: "anything-else", wantKey: "sk-test"},
	}

	for _, tt := range tests {
		t.Run(tt.client, func(t *testing.T) {
			provider := testutil.NewFakeProvider("{}")
			_, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment(tt.client)), testRunConfig(provider))
			require.NoError(t, err)

			configs := provider.Configs()
			require.Len(t, configs, 1)
			assert.Equal(t, tt.wantKey, configs[0].APIKey)
		})
	}
}

func TestRunProviderError(t *testing.T) {
	provider := testutil.NewFakeProvider("")
	boom := errors.New("upstream unavailable")
	provider.SetError(boom)

	output, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), testRunConfig(provider))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, output)
}

func TestRunMissingDeployment(t *testing.T) {
	_, err := Run(context.Background(), newRunInput("execute_task", nil))
	assert.ErrorIs(t, err, ErrMissingDeployment)
}

func TestRunInvalidConfig(t *testing.T) {
	provider := testutil.NewFakeProvider("{}")
	deployment := &config.AgentDeployment{Name: "broken", AgentConfig: map[string]any{"system_prompt": "x"}}

	_, err := RunWithConfig(context.Background(), newRunInput("execute_task", deployment), testRunConfig(provider))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunTypedConfig(t *testing.T) {
	provider := testutil.NewFakeProvider("{}")
	deployment := &config.AgentDeployment{
		Name: "typed",
		AgentConfig: &config.TaskFinalizerAgentConfig{
			AgentConfig: config.AgentConfig{
				LLMConfig:    config.LLMConfig{Client: "vllm", Model: "hosted_vllm/Qwen/Qwen2-7B"},
				SystemPrompt: "s",
			},
			UserMessageTemplate: "{{objective}}: {{task}}",
		},
	}

	_, err := RunWithConfig(context.Background(), newRunInput("execute_task", deployment), testRunConfig(provider))
	require.NoError(t, err)

	assert.Equal(t, londonObjective+": "+londonTask, provider.LastCall().Messages[1].Content)
	assert.Equal(t, model.ClientVLLM, provider.Configs()[0].Client)
}

func TestRunLogsInputs(t *testing.T) {
	var buf bytes.Buffer
	provider := testutil.NewFakeProvider("{}")
	cfg := testRunConfig(provider)
	cfg.Logger = logging.New(&buf, "info", "text")

	input := newRunInput("execute_task", newDeployment("openai"))
	input.ID = "run-42"
	_, err := RunWithConfig(context.Background(), input, cfg)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `msg="Running with inputs"`)
	assert.Contains(t, buf.String(), "run_id=run-42")
	assert.Contains(t, buf.String(), "msg=Response")
}

func TestRunSpans(t *testing.T) {
	exporter := testutil.RecordSpans(t)
	provider := testutil.NewFakeProvider("{}")

	_, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), testRunConfig(provider))
	require.NoError(t, err)
	assert.Equal(t, []string{"llm_completion", "execute_task", "agent_run"}, testutil.SpanNames(exporter))

	exporter.Reset()
	_, err = RunWithConfig(context.Background(), newRunInput("nope", newDeployment("openai")), testRunConfig(provider))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "agent_run", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestRunHooks(t *testing.T) {
	provider := testutil.NewFakeProvider("{}")
	hooks := &testutil.TestHooks{}
	cfg := testRunConfig(provider)
	cfg.Hooks = hooks

	_, err := RunWithConfig(context.Background(), newRunInput("execute_task", newDeployment("openai")), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, hooks.StartCount)
	assert.Equal(t, 1, hooks.EndCount)
	assert.Equal(t, londonTask, hooks.LastInput.Task)
}
