package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/devkit/internal/infra/storage"
)

// DedupeStore keeps one file per key hash containing decimal unix seconds.
type DedupeStore struct {
	dir string
}

// NewDedupeStore creates a store rooted at dir.
func NewDedupeStore(dir string) *DedupeStore {
	return &DedupeStore{dir: dir}
}

// Dir returns the state directory.
func (s *DedupeStore) Dir() string { return s.dir }

func (s *DedupeStore) path(keyHash string) string {
	return filepath.Join(s.dir, filepath.Base(keyHash))
}

// LastSeen reads the record for keyHash.
func (s *DedupeStore) LastSeen(_ context.Context, keyHash string) (time.Time, bool, error) {
	data, err := os.ReadFile(s.path(keyHash))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read dedupe record: %w", err)
	}

	secs, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: dedupe record %s: %v", storage.ErrCorruptState, keyHash, err)
	}
	return time.Unix(secs, 0), true, nil
}

// SetLastSeen writes t as unix seconds.
func (s *DedupeStore) SetLastSeen(_ context.Context, keyHash string, t time.Time) error {
	return writeAtomic(s.path(keyHash), []byte(strconv.FormatInt(t.Unix(), 10)))
}

// Delete removes the record for keyHash.
func (s *DedupeStore) Delete(_ context.Context, keyHash string) error {
	err := os.Remove(s.path(keyHash))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete dedupe record: %w", err)
	}
	return nil
}

// DeleteAll removes every record file. Other entries in the directory are
// left alone.
func (s *DedupeStore) DeleteAll(_ context.Context) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list dedupe dir: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !isRecordName(e.Name()) {
			continue
		}
		err := os.Remove(filepath.Join(s.dir, e.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear dedupe dir: %w", err)
	}
	return nil
}

// isRecordName reports whether name is an md5 hex digest.
func isRecordName(name string) bool {
	if len(name) != 32 {
		return false
	}
	for _, c := range name {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
