package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/gethired/jobagents/internal/domain"
)

// Registry indexes connected toolsets by the tool names they expose, so the
// tool-invocation endpoint can route a call back to the owning toolset. The
// engine reasons about tools by name only; every invocation comes back
// through here and is policy-gated by the toolset.
type Registry struct {
	mu     sync.RWMutex
	byTool map[string]*Toolset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTool: make(map[string]*Toolset)}
}

// Add registers every tool the toolset exposes. Later registrations win.
func (r *Registry) Add(ts *Toolset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range ts.Tools() {
		r.byTool[name] = ts
	}
}

// Tools returns the registered tool names, sorted.
func (r *Registry) Tools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byTool))
	for name := range r.byTool {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the toolset owning a tool, or nil.
func (r *Registry) Lookup(name string) *Toolset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTool[name]
}

// Call routes a tool invocation to the owning toolset.
func (r *Registry) Call(ctx context.Context, userID, name string, args map[string]interface{}) (*Result, error) {
	ts := r.Lookup(name)
	if ts == nil {
		return nil, domain.Errorf(domain.ErrorKindTool, "unknown tool %s", name)
	}
	return ts.Call(ctx, userID, name, args)
}
