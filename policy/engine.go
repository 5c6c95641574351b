// Package policy evaluates tool invocation policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values produced by the policy.
const (
	DecisionAllow           = "allow"
	DecisionRequireApproval = "require_approval"
	DecisionBlock           = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the tool policy.
// Input should be a map with keys: tool_name, args, user_id, etc.
// Returns: decision (allow, require_approval, block), reason (optional), error.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// The policy is expected to define a default.
		return DecisionAllow, "default", nil
	}

	val := results[0].Expressions[0].Value
	if s, ok := val.(string); ok {
		return s, "", nil
	}

	return DecisionAllow, "unexpected return type", nil
}

// DefaultPolicy is the default job-search tool policy: applying to a job on
// the user's behalf needs a human decision, everything else is read-only and
// allowed.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

# Submitting an application acts on the user's behalf.
decision = "require_approval" {
	input.tool_name == "apply_to_job"
}

# Profile data is read-only for agents.
decision = "block" {
	input.tool_name == "delete_profile"
}
`
