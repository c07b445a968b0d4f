// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ryichk/task-finalizer-go/agent"
	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/metrics"
	"github.com/ryichk/task-finalizer-go/tracing"
)

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrMissingDeployment = errors.New("agent deployment is required")
)

// Command is a tool name the runner can dispatch
type Command string

const (
	CommandExecuteTask Command = agent.ExecuteTaskToolName
)

// Commands lists every command the runner dispatches
var Commands = []Command{CommandExecuteTask}

// ParseCommand maps a tool name onto a Command. Names are matched exactly.
func ParseCommand(name string) (Command, error) {
	for _, c := range Commands {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// RunConfig represents run configuration
type RunConfig struct {
	// Logger receives run logs. Nil means slog.Default().
	Logger *slog.Logger

	// Metrics records runs and completion calls. Nil disables metrics.
	Metrics *metrics.Recorder

	// ProviderFactory replaces the go-openai backed provider when set
	ProviderFactory agent.ProviderFactory

	// Hooks receives agent lifecycle callbacks
	Hooks agent.Hooks

	// Getenv replaces os.Getenv for API key lookup when set
	Getenv func(string) string
}

// DefaultRunConfig returns the default run configuration
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Logger: slog.Default(),
	}
}

// Run executes the command named by input.Inputs.ToolName against a fresh
// agent bound to input.AgentDeployment and returns the result as JSON.
func Run(ctx context.Context, input config.AgentRunInput) (string, error) {
	return RunWithConfig(ctx, input, DefaultRunConfig())
}

// RunWithConfig executes a run with configuration
func RunWithConfig(ctx context.Context, input config.AgentRunInput, cfg RunConfig) (string, error) {
	if input.AgentDeployment == nil {
		return "", ErrMissingDeployment
	}

	runID := input.ID
	if runID == "" {
		runID = uuid.NewString()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID)
	logger.Info("Running with inputs", "inputs", input.Inputs, "consumer_id", input.ConsumerID)

	span, ctx := tracing.StartSpan(ctx, "agent_run", map[string]any{
		"run_id":      runID,
		"consumer_id": input.ConsumerID,
		"agent_name":  input.AgentDeployment.Name,
		"tool_name":   input.Inputs.ToolName,
	})
	defer span.End()

	startTime := time.Now()
	command, output, err := dispatch(ctx, input, cfg, logger)

	label := string(command)
	if label == "" {
		label = "unknown"
	}
	cfg.Metrics.ObserveRun(label, err)

	if err != nil {
		recordTracingError(span, startTime, err)
		logger.Error("Run failed", "tool_name", input.Inputs.ToolName, "error", err)
		return "", err
	}

	span.SetAttributes(map[string]any{
		"duration_ms": time.Since(startTime).Milliseconds(),
		"success":     true,
	})

	return output, nil
}

func dispatch(ctx context.Context, input config.AgentRunInput, cfg RunConfig, logger *slog.Logger) (Command, string, error) {
	command, err := ParseCommand(input.Inputs.ToolName)
	if err != nil {
		return "", "", err
	}

	a, err := agent.New(input.AgentDeployment, agentOptions(cfg, logger)...)
	if err != nil {
		return command, "", err
	}

	switch command {
	case CommandExecuteTask:
		result, err := a.ExecuteTask(ctx, input.Inputs.ToolInputData)
		if err != nil {
			return command, "", fmt.Errorf("%s failed: %w", command, err)
		}

		output, err := result.Canonical()
		if err != nil {
			return command, "", fmt.Errorf("failed to encode result: %w", err)
		}
		return command, output, nil
	default:
		return command, "", fmt.Errorf("%w: %q", ErrUnknownTool, command)
	}
}

func agentOptions(cfg RunConfig, logger *slog.Logger) []agent.Option {
	opts := []agent.Option{
		agent.WithLogger(logger),
		agent.WithMetrics(cfg.Metrics),
	}
	if cfg.ProviderFactory != nil {
		opts = append(opts, agent.WithProviderFactory(cfg.ProviderFactory))
	}
	if cfg.Hooks != nil {
		opts = append(opts, agent.WithHooks(cfg.Hooks))
	}
	if cfg.Getenv != nil {
		opts = append(opts, agent.WithGetenv(cfg.Getenv))
	}
	return opts
}

func recordTracingError(span tracing.Span, startTime time.Time, err error) {
	span.SetAttributes(map[string]any{
		"duration_ms": time.Since(startTime).Milliseconds(),
		"success":     false,
	})
	span.RecordError(err)
}
