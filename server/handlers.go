// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ryichk/task-finalizer-go/agent"
	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/runner"
)

type errorResponse struct {
	Error string `json:"error"`
}

type toolResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var input config.AgentRunInput
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if input.AgentDeployment == nil {
		deployment, ok := s.deployment(r.URL.Query().Get("deployment"))
		if !ok {
			writeError(w, http.StatusBadRequest, runner.ErrMissingDeployment.Error())
			return
		}
		input.AgentDeployment = deployment
	}

	output, err := runner.RunWithConfig(r.Context(), input, s.runConfig)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, output)
}

func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.deployments))
	for _, d := range s.deployments {
		names = append(names, d.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": names})
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	a, err := agent.New(&config.AgentDeployment{}, agent.WithLogger(s.logger))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tools, err := a.Tools()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := make([]toolResponse, 0, len(tools))
	for _, t := range tools {
		response = append(response, toolResponse{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.ParamsJSONSchema(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": response})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrUnknownTool),
		errors.Is(err, runner.ErrMissingDeployment),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingConfig):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
