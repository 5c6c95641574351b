// Package tools provides the uniform tool invocation boundary: connected
// toolsets called by name, gated by policy, with human approval tickets for
// sensitive calls.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/policy"
)

// Result is the outcome of one tool invocation. Status pending means a human
// decision is outstanding and TicketID identifies the approval request.
type Result struct {
	Status   domain.ToolResultStatus `json:"status"`
	TicketID string                  `json:"ticket_id,omitempty"`
	Reason   string                  `json:"reason,omitempty"`
	Value    json.RawMessage         `json:"value,omitempty"`
}

// Config describes one toolset connection.
type Config struct {
	// Name identifies the toolset in logs and errors.
	Name string
	// BaseURL is the tool provider endpoint.
	BaseURL string
	// Filter lists the tool names exposed to the owning agent.
	Filter []string
	// Timeout bounds a single tool call. Zero means 60s.
	Timeout time.Duration
}

// Toolset is one connected tool provider. It is acquired when a pipeline is
// built and must be released exactly once when the pipeline is torn down; it
// satisfies lease.Lease.
type Toolset struct {
	name    string
	baseURL string
	filter  map[string]bool
	names   []string

	client    *http.Client
	policy    *policy.Engine
	approvals *Approvals

	mu     sync.Mutex
	closed bool
}

// Connect establishes a toolset connection. The policy engine and approvals
// registry are optional; without them every filtered call is dispatched.
func Connect(cfg Config, pol *policy.Engine, approvals *Approvals) (*Toolset, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("toolset %s: base URL is required", cfg.Name)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	filter := make(map[string]bool, len(cfg.Filter))
	for _, name := range cfg.Filter {
		filter[name] = true
	}

	return &Toolset{
		name:      cfg.Name,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		filter:    filter,
		names:     append([]string(nil), cfg.Filter...),
		client:    &http.Client{Timeout: timeout},
		policy:    pol,
		approvals: approvals,
	}, nil
}

// Name returns the toolset name.
func (t *Toolset) Name() string { return t.name }

// Tools returns the tool names this toolset exposes.
func (t *Toolset) Tools() []string { return append([]string(nil), t.names...) }

// Call invokes a tool by name. Policy is evaluated first: blocked calls
// return a rejected result, approval-gated calls return a pending result with
// a ticket id, allowed calls are dispatched to the provider.
func (t *Toolset) Call(ctx context.Context, userID, name string, args map[string]interface{}) (*Result, error) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return nil, domain.Errorf(domain.ErrorKindTool, "toolset %s is closed", t.name)
	}
	if len(t.filter) > 0 && !t.filter[name] {
		return nil, domain.Errorf(domain.ErrorKindTool, "tool %s is not exposed by toolset %s", name, t.name)
	}

	if t.policy != nil {
		decision, reason, err := t.policy.Evaluate(ctx, map[string]interface{}{
			"tool_name": name,
			"user_id":   userID,
			"args":      argsOrEmpty(args),
		})
		if err != nil {
			return nil, domain.WrapError(domain.ErrorKindTool, err, "policy evaluation failed")
		}

		switch decision {
		case policy.DecisionBlock:
			logrus.WithFields(logrus.Fields{"tool": name, "user_id": userID}).Warn("tool call blocked by policy")
			return &Result{Status: domain.ToolResultRejected, Reason: blockedReason(reason)}, nil
		case policy.DecisionRequireApproval:
			if t.approvals != nil {
				ticket := t.approvals.Open(name, args)
				logrus.WithFields(logrus.Fields{"tool": name, "ticket_id": ticket.ID}).Info("tool call waiting for approval")
				return &Result{Status: domain.ToolResultPending, TicketID: ticket.ID, Reason: "waiting_approval"}, nil
			}
		}
	}

	return t.dispatch(ctx, name, args)
}

func (t *Toolset) dispatch(ctx context.Context, name string, args map[string]interface{}) (*Result, error) {
	body, err := json.Marshal(map[string]interface{}{
		"tool": name,
		"args": argsOrEmpty(args),
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindTool, err, "failed to marshal tool call")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindTool, err, "failed to create tool request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindTool, err, fmt.Sprintf("tool %s call failed", name))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, domain.Errorf(domain.ErrorKindTool, "tool %s returned status %d: %s", name, resp.StatusCode, string(respBody))
	}

	value, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorKindTool, err, "failed to read tool response")
	}
	return &Result{Status: domain.ToolResultOK, Value: value}, nil
}

// Health checks the provider's health endpoint.
func (t *Toolset) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("toolset %s health returned status %d", t.name, resp.StatusCode)
	}
	return nil
}

// Close releases the connection. Idempotent.
func (t *Toolset) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.client.CloseIdleConnections()
	return nil
}

func argsOrEmpty(args map[string]interface{}) map[string]interface{} {
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func blockedReason(reason string) string {
	if reason == "" {
		return "blocked by policy"
	}
	return reason
}
