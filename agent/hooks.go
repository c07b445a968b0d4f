// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package agent

import (
	"context"

	"github.com/ryichk/task-finalizer-go/schema"
)

// Hooks is the interface for agent lifecycle hooks
type Hooks interface {
	// OnStart is called before the prompt is built. Returning an error aborts the task.
	OnStart(ctx context.Context, agent *TaskFinalizerAgent, input schema.TaskExecutorPromptSchema) error

	// OnEnd is called with the finalized result before it is returned
	OnEnd(ctx context.Context, agent *TaskFinalizerAgent, output schema.TaskFinalizer) error
}

// BaseAgentHooks provides a basic implementation of the Hooks interface
type BaseAgentHooks struct{}

func (h *BaseAgentHooks) OnStart(ctx context.Context, agent *TaskFinalizerAgent, input schema.TaskExecutorPromptSchema) error {
	return nil
}

func (h *BaseAgentHooks) OnEnd(ctx context.Context, agent *TaskFinalizerAgent, output schema.TaskFinalizer) error {
	return nil
}
