// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Tool represents a command the agent exposes to the runner
type Tool interface {
	Name() string
	Description() string

	// ParamsJSONSchema returns the JSON schema for the tool's parameters
	ParamsJSONSchema() map[string]any

	// Invoke executes the tool
	Invoke(ctx context.Context, paramsJSON string) (string, error)
}

// TypedTool wraps a typed function as a tool. Parameters are decoded from
// JSON into In and the returned Out is encoded back to JSON.
type TypedTool[In, Out any] struct {
	name         string
	description  string
	paramsSchema map[string]any
	fn           func(ctx context.Context, input In) (Out, error)
}

// NewTypedTool creates a tool named name whose parameter schema is reflected
// from In.
//
// Example usage:
//
//	type WeatherArgs struct {
//		City string `json:"city" jsonschema:"required,description=City name"`
//	}
//
//	weatherTool, err := NewTypedTool("get_weather", "Gets the weather for a city",
//		func(ctx context.Context, args WeatherArgs) (string, error) {
//			return "Sunny in " + args.City, nil
//		})
func NewTypedTool[In, Out any](name, description string, fn func(ctx context.Context, input In) (Out, error)) (*TypedTool[In, Out], error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %s: function is required", name)
	}

	paramsSchema, err := generateSchema[In]()
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}

	return &TypedTool[In, Out]{
		name:         name,
		description:  description,
		paramsSchema: paramsSchema,
		fn:           fn,
	}, nil
}

func (t *TypedTool[In, Out]) Name() string {
	return t.name
}

func (t *TypedTool[In, Out]) Description() string {
	return t.description
}

// ParamsJSONSchema returns the JSON schema for the tool's parameters
func (t *TypedTool[In, Out]) ParamsJSONSchema() map[string]any {
	return t.paramsSchema
}

// Invoke decodes paramsJSON, calls the wrapped function and encodes its result
func (t *TypedTool[In, Out]) Invoke(ctx context.Context, paramsJSON string) (string, error) {
	var input In
	if err := json.Unmarshal([]byte(paramsJSON), &input); err != nil {
		return "", fmt.Errorf("failed to parse parameters: %w", err)
	}

	output, err := t.fn(ctx, input)
	if err != nil {
		return "", err
	}

	return encodeResult(output)
}

// Call runs the wrapped function with an already decoded input
func (t *TypedTool[In, Out]) Call(ctx context.Context, input In) (Out, error) {
	return t.fn(ctx, input)
}

func encodeResult(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
