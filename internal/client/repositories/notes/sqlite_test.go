package notes

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/notekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db))
	return db
}

func TestNotes_Lifecycle(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, r.Upsert(ctx, &models.Note{ID: "n1", Title: "first", DateCreated: now, DateModified: now}))
	require.NoError(t, r.Upsert(ctx, &models.Note{ID: "n2", Title: "second", DateCreated: now, DateModified: now.Add(time.Second)}))

	ok, err := r.Exists(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "n2", list[0].ID)

	require.NoError(t, r.Upsert(ctx, &models.Note{ID: "n1", Title: "renamed", DateCreated: now, DateModified: now}))
	n, err := r.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", n.Title)

	require.NoError(t, r.SoftDelete(ctx, "n1", now.Add(time.Minute)))
	require.Error(t, r.SoftDelete(ctx, "n1", now.Add(time.Minute)))

	ok, err = r.Exists(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = r.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestExists_DBErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notes`).WithArgs("n1").WillReturnError(errors.New("boom"))

	_, err = NewSQLiteRepository(db).Exists(context.Background(), "n1")
	require.ErrorContains(t, err, "failed to check note")
	require.NoError(t, mock.ExpectationsWereMet())
}
