// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Command task-finalizer runs the task finalizer agent once from the command
// line or serves it over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/logging"
	"github.com/ryichk/task-finalizer-go/metrics"
	"github.com/ryichk/task-finalizer-go/runner"
	"github.com/ryichk/task-finalizer-go/schema"
	"github.com/ryichk/task-finalizer-go/server"
	"github.com/ryichk/task-finalizer-go/tracing"
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" default:"1" help:"Finalize one task against a deployment and print the result."`
	Serve   ServeCmd   `cmd:"" help:"Serve run requests over HTTP."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Deployments string `short:"d" help:"Path to the agent deployments file (JSON or YAML)." default:"configs/agent_deployments.json" env:"TASK_FINALIZER_DEPLOYMENTS"`
	LLMConfigs  string `name:"llm-configs" help:"Path to an LLM configs file resolving llm_config references. Skipped when missing." default:"configs/llm_configs.json" env:"TASK_FINALIZER_LLM_CONFIGS"`
	LogLevel    string `help:"Log level (debug, info, warn, error)." default:"info" env:"TASK_FINALIZER_LOG_LEVEL"`
	LogFormat   string `help:"Log format." default:"text" enum:"text,json" env:"TASK_FINALIZER_LOG_FORMAT"`
}

func (cli *CLI) loadDeployments() ([]config.AgentDeployment, error) {
	var opts []config.LoadOption
	if cli.LLMConfigs != "" {
		if _, err := os.Stat(cli.LLMConfigs); err == nil {
			opts = append(opts, config.WithLLMConfigs(cli.LLMConfigs))
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", cli.LLMConfigs, err)
		}
	}

	deployments, err := config.LoadAgentDeployments(cli.Deployments, opts...)
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, fmt.Errorf("no deployments in %s", cli.Deployments)
	}
	return deployments, nil
}

// RunCmd finalizes one task.
type RunCmd struct {
	Index      int    `help:"Index of the deployment to use." default:"0"`
	Tool       string `help:"Tool to invoke." default:"execute_task"`
	Task       string `help:"Task that was worked on." default:"Weather pattern between year 1900 and 2000"`
	Objective  string `help:"Objective the task serves." default:"Write a blog post about the weather in London."`
	ConsumerID string `name:"consumer-id" help:"Consumer recorded with the run." env:"TASK_FINALIZER_CONSUMER_ID"`
}

func (c *RunCmd) Run(ctx context.Context, cli *CLI, logger *slog.Logger) error {
	deployments, err := cli.loadDeployments()
	if err != nil {
		return err
	}
	if c.Index < 0 || c.Index >= len(deployments) {
		return fmt.Errorf("deployment index %d out of range (have %d)", c.Index, len(deployments))
	}

	input := config.AgentRunInput{
		ConsumerID: c.ConsumerID,
		Inputs: schema.InputSchema{
			ToolName: c.Tool,
			ToolInputData: schema.TaskExecutorPromptSchema{
				Task:      c.Task,
				Objective: c.Objective,
			},
		},
		AgentDeployment: &deployments[c.Index],
	}

	runConfig := runner.DefaultRunConfig()
	runConfig.Logger = logger

	output, err := runner.RunWithConfig(ctx, input, runConfig)
	if err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Addr  string `help:"Address to listen on." default:":8080" env:"TASK_FINALIZER_ADDR"`
	Index int    `help:"Index of the deployment used when a request names none." default:"0"`
}

func (c *ServeCmd) Run(ctx context.Context, cli *CLI, logger *slog.Logger) error {
	deployments, err := cli.loadDeployments()
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	runConfig := runner.DefaultRunConfig()
	runConfig.Logger = logger
	runConfig.Metrics = recorder

	s := server.New(
		server.WithDeployments(deployments, c.Index),
		server.WithRunConfig(runConfig),
		server.WithGatherer(prometheus.DefaultGatherer),
		server.WithLogger(logger),
	)

	logger.Info("Serving deployments", "count", len(deployments), "default_index", c.Index)
	return s.ListenAndServe(ctx, c.Addr)
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("task-finalizer version %s\n", version)
	return nil
}

// tracingConfig keeps stdout free for command output.
func tracingConfig(getenv func(string) string) *tracing.Config {
	cfg := tracing.ConfigFromEnv(getenv)
	cfg.Writer = os.Stderr
	return cfg
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("task-finalizer"),
		kong.Description("Finalize agent tasks against their objective with one chat completion."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	logger := logging.Setup(os.Stderr, cli.LogLevel, cli.LogFormat)

	shutdown, err := tracing.InitTracing(ctx, tracingConfig(os.Getenv))
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	err = kctx.Run(&cli, logger)
	if err != nil {
		logger.Error("Command failed", "error", err)
		stop()
		_ = shutdown(context.Background())
		os.Exit(1)
	}
}
