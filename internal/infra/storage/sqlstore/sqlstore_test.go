package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/devkit/internal/infra/storage"
)

var (
	_ storage.RotationStore = (*RotationRepo)(nil)
	_ storage.DedupeStore   = (*DedupeRepo)(nil)
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewDB(sqlx.NewDb(raw, DriverPgx), DriverPgx), mock
}

func TestRotationRepo_Postgres(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewRotationRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT last_index FROM rotation_state WHERE group_name = $1`)).
		WithArgs("serper").
		WillReturnRows(sqlmock.NewRows([]string{"last_index"}).AddRow(2))

	idx, ok, err := repo.LastIndex(ctx, "serper")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT last_index FROM rotation_state WHERE group_name = $1`)).
		WithArgs("fresh").
		WillReturnRows(sqlmock.NewRows([]string{"last_index"}))

	_, ok, err = repo.LastIndex(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO rotation_state (group_name, last_index, updated_at) VALUES ($1, $2, $3)`)).
		WithArgs("serper", 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetLastIndex(ctx, "serper", 0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotationRepo_QueryError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRotationRepo(db)

	mock.ExpectQuery("SELECT last_index").WillReturnError(errors.New("connection refused"))

	_, _, err := repo.LastIndex(context.Background(), "g")
	assert.ErrorContains(t, err, "failed to get rotation index")
}

func TestDedupeRepo_Postgres(t *testing.T) {
	ctx := context.Background()
	db, mock := newMock(t)
	repo := NewDedupeRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT last_seen FROM dedupe_records WHERE key_hash = $1`)).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"last_seen"}).AddRow(int64(1700000000)))

	got, ok, err := repo.LastSeen(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1700000000), got.Unix())

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO dedupe_records (key_hash, last_seen, updated_at) VALUES ($1, $2, $3)`)).
		WithArgs("h1", int64(1700000012), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetLastSeen(ctx, "h1", time.Unix(1700000012, 0)))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM dedupe_records WHERE key_hash = $1`)).
		WithArgs("h1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, "h1"))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM dedupe_records`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, repo.DeleteAll(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_EndToEnd(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	db, err := Open(ctx, Config{Driver: DriverSQLite, URL: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	// Re-running is a no-op.
	require.NoError(t, db.Migrate(ctx))

	rot := NewRotationRepo(db)
	require.NoError(t, rot.SetLastIndex(ctx, "g", 1))
	require.NoError(t, rot.SetLastIndex(ctx, "g", 2))
	idx, ok, err := rot.LastIndex(ctx, "g")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	dd := NewDedupeRepo(db)
	require.NoError(t, dd.SetLastSeen(ctx, "h", time.Unix(100, 0)))
	require.NoError(t, dd.SetLastSeen(ctx, "h", time.Unix(200, 0)))
	got, ok, err := dd.LastSeen(ctx, "h")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(200), got.Unix())

	require.NoError(t, dd.DeleteAll(ctx))
	_, ok, err = dd.LastSeen(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDialect(t *testing.T) {
	tests := []struct {
		driver  string
		want    string
		wantErr bool
	}{
		{DriverSQLite, "sqlite3", false},
		{DriverPgx, "postgres", false},
		{DriverPostgres, "postgres", false},
		{"", "postgres", false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		got, err := Dialect(tt.driver)
		if (err != nil) != tt.wantErr {
			t.Errorf("Dialect(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("Dialect(%q) = %q, want %q", tt.driver, got, tt.want)
		}
	}
}
