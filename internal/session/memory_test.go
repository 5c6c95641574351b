package session

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStoreGetAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx, "app", "u1", "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected absent session, got %+v", got)
	}
}

func TestMemoryStoreCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.Create(ctx, "app", "u1", "s1", map[string]interface{}{"k": "v"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := store.Create(ctx, "app", "u1", "s1", nil)
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if first != second {
		t.Fatal("expected the same session for duplicate creates")
	}
	if v, _ := second.Value("k"); v != "v" {
		t.Fatalf("initial state lost: %v", v)
	}
}

func TestMemoryStoreGetReturnsSameIdentity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, _ := store.Create(ctx, "app", "u1", "s1", nil)
	got, err := store.Get(ctx, "app", "u1", "s1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != created {
		t.Fatal("expected lookup to return the created session")
	}
}

func TestMemoryStoreApplyStateLatestWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, "app", "u1", "s1", nil)

	store.ApplyState(ctx, "app", "u1", "s1", map[string]interface{}{"k": 1})
	store.ApplyState(ctx, "app", "u1", "s1", map[string]interface{}{"k": 2})

	sess, _ := store.Get(ctx, "app", "u1", "s1")
	if v, _ := sess.Value("k"); v != 2 {
		t.Fatalf("expected latest write to win, got %v", v)
	}
}

func TestMemoryStoreConcurrentDisjointKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			if _, err := store.Create(ctx, "app", "u1", id, nil); err != nil {
				t.Errorf("Create %s failed: %v", id, err)
			}
			if err := store.ApplyState(ctx, "app", "u1", id, map[string]interface{}{"n": n}); err != nil {
				t.Errorf("ApplyState %s failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		id := string(rune('a' + i))
		sess, err := store.Get(ctx, "app", "u1", id)
		if err != nil || sess == nil {
			t.Fatalf("missing session %s: %v", id, err)
		}
		if v, _ := sess.Value("n"); v != i {
			t.Fatalf("session %s has wrong state: %v", id, v)
		}
	}
}
