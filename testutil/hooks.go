// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package testutil

import (
	"context"
	"sync"

	"github.com/ryichk/task-finalizer-go/agent"
	"github.com/ryichk/task-finalizer-go/schema"
)

// TestHooks counts lifecycle callbacks and remembers what they saw
type TestHooks struct {
	agent.BaseAgentHooks

	mu         sync.Mutex
	StartCount int
	EndCount   int
	LastInput  schema.TaskExecutorPromptSchema
	LastOutput schema.TaskFinalizer

	// StartErr is returned from OnStart when set
	StartErr error
}

func (h *TestHooks) OnStart(ctx context.Context, a *agent.TaskFinalizerAgent, input schema.TaskExecutorPromptSchema) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.StartCount++
	h.LastInput = input
	return h.StartErr
}

func (h *TestHooks) OnEnd(ctx context.Context, a *agent.TaskFinalizerAgent, output schema.TaskFinalizer) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.EndCount++
	h.LastOutput = output
	return nil
}
