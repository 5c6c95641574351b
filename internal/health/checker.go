// Package health tracks service liveness and readiness and waits for
// downstream dependencies at startup.
package health

import (
	"sync"
	"time"
)

// Status is the coarse lifecycle state reported on the health surface.
type Status string

const (
	StatusStarting Status = "starting"
	StatusReady    Status = "ready"
	StatusDegraded Status = "degraded"
	StatusStopping Status = "stopping"
)

const errorRingSize = 10

type errorRecord struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Checker holds the current status plus a short ring of recent errors.
type Checker struct {
	mu      sync.Mutex
	status  Status
	started time.Time
	errors  []errorRecord
}

// NewChecker starts in the starting state.
func NewChecker() *Checker {
	return &Checker{status: StatusStarting, started: time.Now()}
}

// Update moves the checker to a new status.
func (c *Checker) Update(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

// RecordError appends to the error ring, keeping the most recent entries.
func (c *Checker) RecordError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, errorRecord{At: time.Now(), Message: message})
	if len(c.errors) > errorRingSize {
		c.errors = c.errors[len(c.errors)-errorRingSize:]
	}
}

// Healthy reports liveness. The process is live unless it is shutting down.
func (c *Checker) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != StatusStopping
}

// Ready reports whether the service can take traffic.
func (c *Checker) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusReady
}

// Report is the JSON body of the health endpoint.
func (c *Checker) Report() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	recent := make([]errorRecord, len(c.errors))
	copy(recent, c.errors)
	return map[string]interface{}{
		"status":         string(c.status),
		"uptime_seconds": time.Since(c.started).Seconds(),
		"recent_errors":  recent,
	}
}
