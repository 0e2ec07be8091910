package rotation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/devkit/internal/infra/storage"
	"github.com/vietddude/devkit/internal/infra/storage/file"
	"github.com/vietddude/devkit/internal/infra/storage/memory"
)

// fakeStore counts calls and can fail on demand.
type fakeStore struct {
	mu       sync.Mutex
	state    map[string]int
	reads    int
	writes   int
	readErr  error
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: make(map[string]int)}
}

func (f *fakeStore) LastIndex(_ context.Context, group string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return 0, false, f.readErr
	}
	idx, ok := f.state[group]
	return idx, ok, nil
}

func (f *fakeStore) SetLastIndex(_ context.Context, group string, idx int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.state[group] = idx
	return nil
}

func TestNext_RoundRobin(t *testing.T) {
	store := newFakeStore()
	r := NewRotator(store)
	creds := []string{"a", "b", "c"}

	var got []string
	for range 5 {
		got = append(got, r.Next(context.Background(), creds, "g"))
	}

	want := []string{"a", "b", "c", "a", "b"}
	if !slices.Equal(got, want) {
		t.Errorf("Next sequence = %v, want %v", got, want)
	}
	if store.state["g"] != 1 {
		t.Errorf("stored index = %d, want 1", store.state["g"])
	}
}

func TestNext_GroupsAreIndependent(t *testing.T) {
	r := NewRotator(memory.NewRotationStore(memory.NewMemoryStorage()))
	ctx := context.Background()
	creds := []string{"a", "b"}

	if got := r.Next(ctx, creds, "x"); got != "a" {
		t.Errorf("x first = %q", got)
	}
	if got := r.Next(ctx, creds, "y"); got != "a" {
		t.Errorf("y first = %q", got)
	}
	if got := r.Next(ctx, creds, "x"); got != "b" {
		t.Errorf("x second = %q", got)
	}
}

func TestNext_EmptyAndSingle(t *testing.T) {
	store := newFakeStore()
	r := NewRotator(store)
	ctx := context.Background()

	if got := r.Next(ctx, nil, "g"); got != "" {
		t.Errorf("Next(nil) = %q, want empty", got)
	}
	for range 3 {
		if got := r.Next(ctx, []string{"only"}, "g"); got != "only" {
			t.Errorf("Next(single) = %q, want only", got)
		}
	}
	if store.reads != 0 || store.writes != 0 {
		t.Errorf("store touched: reads=%d writes=%d", store.reads, store.writes)
	}
}

func TestNext_RenormalizesStaleIndex(t *testing.T) {
	tests := []struct {
		stored int
		want   string
	}{
		{5, "a"},  // 5 mod 3 = 2, next 0
		{4, "c"},  // 4 mod 3 = 1, next 2
		{2, "a"},  // last entry wraps
		{-7, "a"}, // negative treated as unset
	}

	for _, tt := range tests {
		store := newFakeStore()
		store.state["g"] = tt.stored
		r := NewRotator(store)
		if got := r.Next(context.Background(), []string{"a", "b", "c"}, "g"); got != tt.want {
			t.Errorf("stored %d: Next = %q, want %q", tt.stored, got, tt.want)
		}
	}
}

func TestNext_ReadFailureDegrades(t *testing.T) {
	store := newFakeStore()
	store.readErr = errors.New("permission denied")

	var events []*storage.StateIOError
	r := NewRotator(store, WithDegradeHook(func(e *storage.StateIOError) { events = append(events, e) }))

	if got := r.Next(context.Background(), []string{"a", "b"}, "g"); got != "a" {
		t.Errorf("Next = %q, want a", got)
	}
	if len(events) != 1 || events[0].Op != "read" || events[0].Component != "rotation" {
		t.Fatalf("degrade events = %v", events)
	}
	if !errors.Is(events[0], store.readErr) {
		t.Error("degrade event does not wrap the store error")
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
}

func TestNext_WriteFailureStillReturns(t *testing.T) {
	store := newFakeStore()
	store.state["g"] = 0
	store.writeErr = errors.New("disk full")

	var ops []string
	r := NewRotator(store, WithDegradeHook(func(e *storage.StateIOError) { ops = append(ops, e.Op) }))

	if got := r.Next(context.Background(), []string{"a", "b"}, "g"); got != "b" {
		t.Errorf("Next = %q, want b", got)
	}
	if !slices.Equal(ops, []string{"write"}) {
		t.Errorf("degrade ops = %v, want [write]", ops)
	}
}

func TestNext_DefaultGroup(t *testing.T) {
	store := newFakeStore()
	r := NewRotator(store)
	r.Next(context.Background(), []string{"a", "b"}, "")
	if _, ok := store.state["default"]; !ok {
		t.Errorf("state = %v, want default group entry", store.state)
	}
	if got := r.Current(context.Background(), ""); got != 0 {
		t.Errorf("Current = %d, want 0", got)
	}
}

func TestCurrent(t *testing.T) {
	store := newFakeStore()
	r := NewRotator(store)
	if got := r.Current(context.Background(), "g"); got != -1 {
		t.Errorf("Current on empty = %d, want -1", got)
	}
	store.readErr = errors.New("boom")
	if got := r.Current(context.Background(), "g"); got != -1 {
		t.Errorf("Current on error = %d, want -1", got)
	}
}

// Rotators with separate locks share one file, like separate processes.
// Order may break but every result stays in range.
func TestNext_InterleavedProcesses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotation.json")
	creds := []string{"k0", "k1", "k2", "k3"}

	var g errgroup.Group
	results := make([][]string, 6)
	for i := range results {
		r := NewRotator(file.NewRotationStore(path))
		g.Go(func() error {
			for range 25 {
				got := r.Next(context.Background(), creds, "shared")
				if !slices.Contains(creds, got) {
					return fmt.Errorf("out of range credential %q", got)
				}
				results[i] = append(results[i], got)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	for i, rs := range results {
		if len(rs) != 25 {
			t.Errorf("worker %d got %d results, want 25", i, len(rs))
		}
	}
}
