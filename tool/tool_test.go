// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type addArgs struct {
	A int `json:"a" jsonschema:"required,description=First number"`
	B int `json:"b" jsonschema:"required,description=Second number"`
}

type weatherArgs struct {
	City  string `json:"city" jsonschema:"required,description=City name"`
	Units string `json:"units,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
}

type report struct {
	Text string `json:"text"`
}

func TestTypedToolInvoke(t *testing.T) {
	add, err := NewTypedTool("add", "Adds two numbers", func(ctx context.Context, args addArgs) (int, error) {
		return args.A + args.B, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "add", add.Name())
	assert.Equal(t, "Adds two numbers", add.Description())

	result, err := add.Invoke(context.Background(), `{"a":2,"b":3}`)
	require.NoError(t, err)
	assert.Equal(t, "5", result)

	sum, err := add.Call(context.Background(), addArgs{A: 1, B: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, sum)
}

func TestTypedToolSchema(t *testing.T) {
	weather, err := NewTypedTool("get_weather", "Gets the weather", func(ctx context.Context, args weatherArgs) (string, error) {
		return "Sunny in " + args.City, nil
	})
	require.NoError(t, err)

	schema := weather.ParamsJSONSchema()
	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, []any{"city"}, schema["required"])

	properties, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	city, ok := properties["city"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])

	units, ok := properties["units"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, units["enum"])
}

func TestTypedToolStringResultIsReturnedAsIs(t *testing.T) {
	weather, err := NewTypedTool("get_weather", "", func(ctx context.Context, args weatherArgs) (string, error) {
		return "Sunny in " + args.City, nil
	})
	require.NoError(t, err)

	result, err := weather.Invoke(context.Background(), `{"city":"London"}`)
	require.NoError(t, err)
	assert.Equal(t, "Sunny in London", result)
}

func TestTypedToolDoesNotEscapeHTML(t *testing.T) {
	echo, err := NewTypedTool("echo", "", func(ctx context.Context, args weatherArgs) (report, error) {
		return report{Text: args.City}, nil
	})
	require.NoError(t, err)

	result, err := echo.Invoke(context.Background(), `{"city":"a < b & c"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"a < b & c"}`, result)
}

func TestTypedToolErrors(t *testing.T) {
	boom := errors.New("boom")
	failing, err := NewTypedTool("fail", "", func(ctx context.Context, args addArgs) (int, error) {
		return 0, boom
	})
	require.NoError(t, err)

	_, err = failing.Invoke(context.Background(), `{"a":1,"b":2}`)
	assert.ErrorIs(t, err, boom)

	_, err = failing.Invoke(context.Background(), `not json`)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse parameters")

	_, err = failing.Invoke(context.Background(), `{"a":"one"}`)
	assert.Error(t, err)
}

func TestNewTypedToolValidation(t *testing.T) {
	_, err := NewTypedTool("", "", func(ctx context.Context, args addArgs) (int, error) { return 0, nil })
	assert.Error(t, err)

	_, err = NewTypedTool[addArgs, int]("add", "", nil)
	assert.Error(t, err)
}

func TestToolInterface(t *testing.T) {
	add, err := NewTypedTool("add", "", func(ctx context.Context, args addArgs) (int, error) {
		return args.A + args.B, nil
	})
	require.NoError(t, err)

	var _ Tool = add
}
