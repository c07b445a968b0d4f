// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotJSONObject = errors.New("response is not a JSON object")
	ErrNullField     = errors.New("field is null")
	ErrMissingField  = errors.New("required field is missing")
)

// Parsed is the outcome of reading model output as a TaskFinalizer.
// It is either Structured or Unstructured.
type Parsed interface {
	// Result returns the TaskFinalizer carried by the outcome.
	Result() TaskFinalizer

	parsed()
}

// Structured is model output that decoded cleanly into a TaskFinalizer.
type Structured struct {
	Value TaskFinalizer
}

// Result returns the decoded value.
func (s Structured) Result() TaskFinalizer {
	return s.Value
}

func (Structured) parsed() {}

// Unstructured is model output that could not populate a TaskFinalizer.
type Unstructured struct {
	// Text is the raw model output.
	Text string

	// Err describes why decoding failed.
	Err error
}

// Result wraps the raw text as the final report with no new tasks and the
// objective not met.
func (u Unstructured) Result() TaskFinalizer {
	return TaskFinalizer{
		FinalReport:  u.Text,
		NewTasks:     []Task{},
		ObjectiveMet: false,
	}
}

func (Unstructured) parsed() {}

// ParseTaskFinalizer decodes text as a single JSON object with the
// TaskFinalizer shape. Field names are matched exactly, absent fields take
// their defaults and unknown fields are ignored. Anything else, including
// fields of the wrong JSON type and tasks without a name or description,
// yields Unstructured.
func ParseTaskFinalizer(text string) Parsed {
	value, err := decodeTaskFinalizer([]byte(text))
	if err != nil {
		return Unstructured{Text: text, Err: err}
	}
	return Structured{Value: value}
}

func decodeTaskFinalizer(data []byte) (TaskFinalizer, error) {
	result := TaskFinalizer{NewTasks: []Task{}}

	if !json.Valid(data) {
		return result, fmt.Errorf("invalid JSON")
	}
	if first := bytes.TrimSpace(data); len(first) == 0 || first[0] != '{' {
		return result, ErrNotJSONObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return result, err
	}

	if err := decodeField(fields, "final_report", &result.FinalReport); err != nil {
		return result, err
	}
	if err := decodeField(fields, "objective_met", &result.ObjectiveMet); err != nil {
		return result, err
	}

	var rawTasks []json.RawMessage
	if err := decodeField(fields, "new_tasks", &rawTasks); err != nil {
		return result, err
	}
	for i, raw := range rawTasks {
		task, err := decodeTask(raw)
		if err != nil {
			return result, fmt.Errorf("new_tasks[%d]: %w", i, err)
		}
		result.NewTasks = append(result.NewTasks, task)
	}

	return result, nil
}

func decodeTask(raw json.RawMessage) (Task, error) {
	var task Task

	if first := bytes.TrimSpace(raw); len(first) == 0 || first[0] != '{' {
		return task, ErrNotJSONObject
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return task, err
	}

	for _, key := range []string{"name", "description"} {
		if _, ok := fields[key]; !ok {
			return task, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}

	if err := decodeField(fields, "name", &task.Name); err != nil {
		return task, err
	}
	if err := decodeField(fields, "description", &task.Description); err != nil {
		return task, err
	}
	if err := decodeField(fields, "done", &task.Done); err != nil {
		return task, err
	}
	if err := decodeField(fields, "result", &task.Result); err != nil {
		return task, err
	}

	return task, nil
}

// decodeField decodes fields[key] into dst when present. A JSON null is
// rejected so that it cannot silently stand in for a default.
func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return fmt.Errorf("%w: %s", ErrNullField, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}
	return nil
}
