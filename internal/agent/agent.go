// Package agent defines the job search agents executed by the pipeline.
// Agents are declarative: a prompt, a model, an output key, and a connected
// toolset. Their reasoning happens behind the engine boundary.
package agent

import (
	"context"

	"github.com/gethired/jobagents/internal/lease"
	"github.com/gethired/jobagents/internal/tools"
	"github.com/gethired/jobagents/policy"
)

// DefaultModel is the model agents request from the engine.
const DefaultModel = "gemini-2.0-flash-001"

// Agent is one step of the pipeline.
type Agent struct {
	Name        string
	Description string
	Instruction string
	Model       string
	// OutputKey names the session state key that receives the agent's final
	// output, so downstream agents can consume it.
	OutputKey string
	Toolset   *tools.Toolset
}

// ToolNames returns the tools the agent may call.
func (a *Agent) ToolNames() []string {
	if a.Toolset == nil {
		return nil
	}
	return a.Toolset.Tools()
}

// Builder creates one agent and the lease for its toolset connection. A nil
// lease means the agent holds no external resources.
type Builder func(ctx context.Context) (*Agent, lease.Lease, error)

// Deps carries the shared collaborators agent builders need. When a registry
// is present, builders register their toolset so the tool-invocation
// endpoint can route calls back to it.
type Deps struct {
	Policy    *policy.Engine
	Approvals *tools.Approvals
	Registry  *tools.Registry
}
