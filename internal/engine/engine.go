// Package engine defines the boundary to the reasoning engine that executes
// one agent step. The engine is an external collaborator: it receives the
// agent definition and session state, does its tool-calling reasoning out of
// band, and reports progress as step events.
package engine

import (
	"context"

	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/stream"
)

// Request describes one agent execution.
type Request struct {
	Agent       string                 `json:"agent"`
	Description string                 `json:"description,omitempty"`
	Instruction string                 `json:"instruction"`
	Model       string                 `json:"model,omitempty"`
	OutputKey   string                 `json:"output_key,omitempty"`
	UserID      string                 `json:"user_id"`
	SessionID   string                 `json:"session_id"`
	Message     domain.Content         `json:"message"`
	State       map[string]interface{} `json:"state,omitempty"`
	Tools       []string               `json:"tools,omitempty"`
	// ToolCallbackURL is where the engine invokes the agent's tools, so
	// every call passes through the policy gate.
	ToolCallbackURL string `json:"tool_callback_url,omitempty"`
}

// Engine runs one agent step and streams its events. The returned stream is
// owned by the caller, which must close it on every exit path.
type Engine interface {
	Execute(ctx context.Context, req *Request) (*stream.Stream, error)
}
