package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/vietddude/devkit/internal/core/domain"
	"github.com/vietddude/devkit/internal/infra/storage"
)

// RotationStore keeps every rotation group in one JSON object file.
type RotationStore struct {
	path string
}

// NewRotationStore creates a store backed by the JSON file at path.
func NewRotationStore(path string) *RotationStore {
	return &RotationStore{path: path}
}

// Path returns the state file location.
func (s *RotationStore) Path() string { return s.path }

func (s *RotationStore) load() (domain.RotationState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.RotationState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read rotation state: %w", err)
	}

	state := domain.RotationState{}
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", storage.ErrCorruptState, s.path, err)
	}
	if state == nil {
		state = domain.RotationState{}
	}
	return state, nil
}

// LastIndex returns the stored index for group.
func (s *RotationStore) LastIndex(_ context.Context, group string) (int, bool, error) {
	state, err := s.load()
	if err != nil {
		return 0, false, err
	}
	idx, ok := state[group]
	return idx, ok, nil
}

// SetLastIndex rewrites the state file with group set to idx. Corrupt
// state is replaced; any other read failure is returned untouched.
func (s *RotationStore) SetLastIndex(_ context.Context, group string, idx int) error {
	state, err := s.load()
	if errors.Is(err, storage.ErrCorruptState) {
		state = domain.RotationState{}
	} else if err != nil {
		return err
	}
	state[group] = idx

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode rotation state: %w", err)
	}
	return writeAtomic(s.path, data)
}
