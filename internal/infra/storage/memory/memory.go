package memory

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage keeps rotation and dedupe state in process memory.
type MemoryStorage struct {
	rotation map[string]int
	dedupe   map[string]time.Time
	mu       sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		rotation: make(map[string]int),
		dedupe:   make(map[string]time.Time),
	}
}

// -----------------------------------------------------------------------------
// Rotation Store
// -----------------------------------------------------------------------------

type RotationStore struct {
	store *MemoryStorage
}

func NewRotationStore(store *MemoryStorage) *RotationStore {
	return &RotationStore{store: store}
}

func (r *RotationStore) LastIndex(ctx context.Context, group string) (int, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	idx, ok := r.store.rotation[group]
	return idx, ok, nil
}

func (r *RotationStore) SetLastIndex(ctx context.Context, group string, idx int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.rotation[group] = idx
	return nil
}

// -----------------------------------------------------------------------------
// Dedupe Store
// -----------------------------------------------------------------------------

type DedupeStore struct {
	store *MemoryStorage
}

func NewDedupeStore(store *MemoryStorage) *DedupeStore {
	return &DedupeStore{store: store}
}

func (r *DedupeStore) LastSeen(ctx context.Context, keyHash string) (time.Time, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.dedupe[keyHash]
	return t, ok, nil
}

func (r *DedupeStore) SetLastSeen(ctx context.Context, keyHash string, t time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.dedupe[keyHash] = t
	return nil
}

func (r *DedupeStore) Delete(ctx context.Context, keyHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.dedupe, keyHash)
	return nil
}

func (r *DedupeStore) DeleteAll(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	clear(r.store.dedupe)
	return nil
}
