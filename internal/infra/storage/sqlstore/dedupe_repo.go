package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	selectDedupe = `SELECT last_seen FROM dedupe_records WHERE key_hash = ?`
	upsertDedupe = `INSERT INTO dedupe_records (key_hash, last_seen, updated_at) VALUES (?, ?, ?)
ON CONFLICT (key_hash) DO UPDATE SET last_seen = excluded.last_seen, updated_at = excluded.updated_at`
	deleteDedupe    = `DELETE FROM dedupe_records WHERE key_hash = ?`
	deleteAllDedupe = `DELETE FROM dedupe_records`
)

// DedupeRepo implements storage.DedupeStore using SQL.
type DedupeRepo struct {
	db *DB
}

// NewDedupeRepo creates a new SQL dedupe repository.
func NewDedupeRepo(db *DB) *DedupeRepo {
	return &DedupeRepo{db: db}
}

// LastSeen retrieves the last admission time for keyHash.
func (r *DedupeRepo) LastSeen(ctx context.Context, keyHash string) (time.Time, bool, error) {
	var secs int64
	err := r.db.GetContext(ctx, &secs, r.db.Rebind(selectDedupe), keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get dedupe record: %w", err)
	}
	return time.Unix(secs, 0), true, nil
}

// SetLastSeen upserts the admission time for keyHash.
func (r *DedupeRepo) SetLastSeen(ctx context.Context, keyHash string, t time.Time) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(upsertDedupe), keyHash, t.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save dedupe record: %w", err)
	}
	return nil
}

// Delete removes the record for keyHash.
func (r *DedupeRepo) Delete(ctx context.Context, keyHash string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(deleteDedupe), keyHash); err != nil {
		return fmt.Errorf("failed to delete dedupe record: %w", err)
	}
	return nil
}

// DeleteAll removes every dedupe record.
func (r *DedupeRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, deleteAllDedupe); err != nil {
		return fmt.Errorf("failed to clear dedupe records: %w", err)
	}
	return nil
}
