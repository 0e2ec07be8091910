package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	selectRotation = `SELECT last_index FROM rotation_state WHERE group_name = ?`
	upsertRotation = `INSERT INTO rotation_state (group_name, last_index, updated_at) VALUES (?, ?, ?)
ON CONFLICT (group_name) DO UPDATE SET last_index = excluded.last_index, updated_at = excluded.updated_at`
)

// RotationRepo implements storage.RotationStore using SQL.
type RotationRepo struct {
	db *DB
}

// NewRotationRepo creates a new SQL rotation repository.
func NewRotationRepo(db *DB) *RotationRepo {
	return &RotationRepo{db: db}
}

// LastIndex retrieves the stored index for group.
func (r *RotationRepo) LastIndex(ctx context.Context, group string) (int, bool, error) {
	var idx int
	err := r.db.GetContext(ctx, &idx, r.db.Rebind(selectRotation), group)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get rotation index: %w", err)
	}
	return idx, true, nil
}

// SetLastIndex upserts the index for group.
func (r *RotationRepo) SetLastIndex(ctx context.Context, group string, idx int) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertRotation), group, idx, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save rotation index: %w", err)
	}
	return nil
}
