package tools

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gethired/jobagents/internal/domain"
)

// Ticket is one human-in-the-loop approval request. A pending ticket is a
// valid terminal-for-now tool result, not an error.
type Ticket struct {
	ID        string                 `json:"ticket_id"`
	Tool      string                 `json:"tool_name"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Status    domain.ApprovalStatus  `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	DecidedAt *time.Time             `json:"decided_at,omitempty"`
	DecidedBy string                 `json:"decided_by,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
}

// Approvals is the in-memory approval ticket registry.
type Approvals struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

// NewApprovals creates an empty registry.
func NewApprovals() *Approvals {
	return &Approvals{tickets: make(map[string]*Ticket)}
}

// Open creates a pending ticket for a tool call awaiting a human decision.
func (a *Approvals) Open(tool string, args map[string]interface{}) *Ticket {
	t := &Ticket{
		ID:        "ap_" + uuid.New().String()[:8],
		Tool:      tool,
		Args:      args,
		Status:    domain.ApprovalStatusPending,
		CreatedAt: time.Now(),
	}
	a.mu.Lock()
	a.tickets[t.ID] = t
	a.mu.Unlock()
	return t
}

// Get returns a ticket by id, or nil.
func (a *Approvals) Get(id string) *Ticket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tickets[id]
}

// Decide resolves a pending ticket.
func (a *Approvals) Decide(id string, approve bool, decidedBy, reason string) (*Ticket, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.tickets[id]
	if !ok {
		return nil, fmt.Errorf("approval %s not found", id)
	}
	if t.Status != domain.ApprovalStatusPending {
		return nil, fmt.Errorf("approval %s is not pending", id)
	}

	now := time.Now()
	t.Status = domain.ApprovalStatusRejected
	if approve {
		t.Status = domain.ApprovalStatusApproved
	}
	t.DecidedAt = &now
	t.DecidedBy = decidedBy
	t.Reason = reason
	return t, nil
}
