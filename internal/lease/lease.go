// Package lease tracks externally acquired resources (toolset connections)
// and guarantees their release on every exit path.
package lease

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Lease is one held external resource. Release must be idempotent.
type Lease interface {
	Close() error
}

// Func adapts a release function to a Lease.
type Func func() error

func (f Func) Close() error { return f() }

// Stack releases pushed leases in reverse order of acquisition. A lease whose
// release fails is logged and skipped so the remaining leases still release.
// Close is idempotent; Stack itself satisfies Lease so stacks can nest.
type Stack struct {
	mu     sync.Mutex
	leases []Lease
	closed bool
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Push registers a lease for release. Pushing onto a closed stack releases
// the lease immediately.
func (s *Stack) Push(l Lease) {
	if l == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err := l.Close(); err != nil {
			logrus.WithError(err).Warn("failed to release lease pushed after close")
		}
		return
	}
	s.leases = append(s.leases, l)
	s.mu.Unlock()
}

// Len reports the number of held leases.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leases)
}

// Close releases all leases in reverse order. Release failures do not stop
// the teardown and are never surfaced to callers.
func (s *Stack) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	leases := s.leases
	s.leases = nil
	s.mu.Unlock()

	for i := len(leases) - 1; i >= 0; i-- {
		if err := leases[i].Close(); err != nil {
			logrus.WithError(err).Warn("failed to release lease")
		}
	}
	return nil
}
