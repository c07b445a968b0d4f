// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Package metrics records task finalizer runs as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "task_finalizer"

// Run statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Parse outcomes
const (
	OutcomeStructured   = "structured"
	OutcomeUnstructured = "unstructured"
)

// Recorder holds the collectors for one registry. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	runs         *prometheus.CounterVec
	llmDuration  *prometheus.HistogramVec
	parseOutcome *prometheus.CounterVec
	llmTokens    *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total agent runs by tool and status.",
		}, []string{"tool", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"client"}),
		parseOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_outcomes_total",
			Help:      "Model replies by parse outcome.",
		}, []string{"outcome"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens reported by the provider.",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{r.runs, r.llmDuration, r.parseOutcome, r.llmTokens} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// MustNewRecorder is like NewRecorder but panics on registration errors.
func MustNewRecorder(reg prometheus.Registerer) *Recorder {
	r, err := NewRecorder(reg)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Recorder) ObserveRun(tool string, err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.runs.WithLabelValues(tool, status).Inc()
}

func (r *Recorder) ObserveLLMRequest(client string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.llmDuration.WithLabelValues(client).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveParse(structured bool) {
	if r == nil {
		return
	}
	outcome := OutcomeUnstructured
	if structured {
		outcome = OutcomeStructured
	}
	r.parseOutcome.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ObserveTokens(prompt, completion int) {
	if r == nil {
		return
	}
	if prompt > 0 {
		r.llmTokens.WithLabelValues("prompt").Add(float64(prompt))
	}
	if completion > 0 {
		r.llmTokens.WithLabelValues("completion").Add(float64(completion))
	}
}
