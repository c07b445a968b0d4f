// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Package schema holds the records exchanged with the task finalizer: the
// tool input, the follow-up tasks it may propose and the finalized result.
package schema

import (
	"bytes"
	"encoding/json"
)

// TaskExecutorPromptSchema carries the raw values substituted into the prompt template.
type TaskExecutorPromptSchema struct {
	Task      string `json:"task" jsonschema:"required,description=The task that was worked on"`
	Objective string `json:"objective" jsonschema:"required,description=The overall objective the task serves"`
}

// InputSchema names the command to invoke and carries its argument.
type InputSchema struct {
	ToolName      string                   `json:"tool_name"`
	ToolInputData TaskExecutorPromptSchema `json:"tool_input_data"`
}

// Task is a unit of follow-up work proposed by the model.
type Task struct {
	// Name is the name of the task to be performed.
	Name string `json:"name"`

	// Description is the description of the task to be performed.
	Description string `json:"description"`

	// Done is true once the task has been performed.
	Done bool `json:"done"`

	// Result is the result of the task.
	Result string `json:"result"`
}

// TaskFinalizer is the result of finalizing a task against an objective.
type TaskFinalizer struct {
	// FinalReport is the final report of the tasks.
	FinalReport string `json:"final_report"`

	// NewTasks is the list of new tasks to be performed.
	NewTasks []Task `json:"new_tasks"`

	// ObjectiveMet is true if the objective has been met.
	ObjectiveMet bool `json:"objective_met"`
}

type taskFinalizerJSON TaskFinalizer

// MarshalJSON always renders new_tasks as an array.
func (f TaskFinalizer) MarshalJSON() ([]byte, error) {
	w := taskFinalizerJSON(f)
	if w.NewTasks == nil {
		w.NewTasks = []Task{}
	}
	return encode(w)
}

// Canonical returns the compact JSON text of the result without HTML escaping.
func (f TaskFinalizer) Canonical() (string, error) {
	b, err := encode(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
