package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCorruptState is returned when persisted state cannot be decoded
	ErrCorruptState = errors.New("corrupt state")
)

// RotationStore persists the index last handed out per rotation group.
type RotationStore interface {
	// LastIndex returns the stored index for group; ok is false when none exists
	LastIndex(ctx context.Context, group string) (idx int, ok bool, err error)

	// SetLastIndex records idx as the index last handed out for group
	SetLastIndex(ctx context.Context, group string, idx int) error
}

// DedupeStore persists the last admission time per hashed dedupe key.
type DedupeStore interface {
	// LastSeen returns the last admission time; ok is false when none exists
	LastSeen(ctx context.Context, keyHash string) (t time.Time, ok bool, err error)

	// SetLastSeen records t as the last admission time for keyHash
	SetLastSeen(ctx context.Context, keyHash string, t time.Time) error

	// Delete removes the record for keyHash. Missing records are not an error.
	Delete(ctx context.Context, keyHash string) error

	// DeleteAll removes every record
	DeleteAll(ctx context.Context) error
}

// StateIOError describes a state store failure that was absorbed.
type StateIOError struct {
	Component string // rotation, dedupe
	Op        string // read, write, clear
	Key       string
	Err       error
}

func (e *StateIOError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s state %s failed: %v", e.Component, e.Op, e.Err)
	}
	return fmt.Sprintf("%s state %s %q failed: %v", e.Component, e.Op, e.Key, e.Err)
}

func (e *StateIOError) Unwrap() error { return e.Err }

// DegradeFunc observes absorbed state failures. It must not block.
type DegradeFunc func(err *StateIOError)
