// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	r.ObserveRun("execute_task", nil)
	r.ObserveRun("execute_task", nil)
	r.ObserveRun("execute_task", errors.New("boom"))
	r.ObserveParse(true)
	r.ObserveParse(false)
	r.ObserveParse(false)
	r.ObserveTokens(12, 8)
	r.ObserveTokens(0, 0)
	r.ObserveLLMRequest("openai", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs.WithLabelValues("execute_task", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs.WithLabelValues("execute_task", StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.parseOutcome.WithLabelValues(OutcomeStructured)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.parseOutcome.WithLabelValues(OutcomeUnstructured)))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.llmTokens.WithLabelValues("prompt")))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.llmTokens.WithLabelValues("completion")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.llmDuration, "task_finalizer_llm_request_duration_seconds"))
}

func TestRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)

	_, err = NewRecorder(reg)
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewRecorder(reg) })
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveRun("execute_task", nil)
		r.ObserveParse(true)
		r.ObserveTokens(1, 1)
		r.ObserveLLMRequest("ollama", time.Second)
	})
}
