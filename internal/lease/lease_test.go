package lease

import (
	"errors"
	"testing"
)

type countingLease struct {
	releases int
	order    *[]string
	name     string
	err      error
}

func (c *countingLease) Close() error {
	c.releases++
	if c.order != nil {
		*c.order = append(*c.order, c.name)
	}
	return c.err
}

func TestStackReleasesInReverseOrder(t *testing.T) {
	var order []string
	s := NewStack()
	s.Push(&countingLease{order: &order, name: "first"})
	s.Push(&countingLease{order: &order, name: "second"})
	s.Push(&countingLease{order: &order, name: "third"})

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(order) != 3 || order[0] != "third" || order[2] != "first" {
		t.Fatalf("unexpected release order: %v", order)
	}
}

func TestStackCloseIsIdempotent(t *testing.T) {
	l := &countingLease{}
	s := NewStack()
	s.Push(l)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if l.releases != 1 {
		t.Fatalf("expected exactly 1 release, got %d", l.releases)
	}
}

func TestStackToleratesReleaseFailure(t *testing.T) {
	var order []string
	s := NewStack()
	good := &countingLease{order: &order, name: "good"}
	bad := &countingLease{order: &order, name: "bad", err: errors.New("close failed")}
	s.Push(good)
	s.Push(bad)

	if err := s.Close(); err != nil {
		t.Fatalf("Close must not surface release failures, got %v", err)
	}
	if good.releases != 1 || bad.releases != 1 {
		t.Fatalf("expected both released: good=%d bad=%d", good.releases, bad.releases)
	}
}

func TestStackPushAfterCloseReleasesImmediately(t *testing.T) {
	s := NewStack()
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	l := &countingLease{}
	s.Push(l)
	if l.releases != 1 {
		t.Fatalf("expected immediate release, got %d", l.releases)
	}
}
