package history

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

func entry(session, note, body string) *models.SessionEntry {
	return &models.SessionEntry{
		SessionID:   session,
		NoteID:      note,
		Type:        models.ContentTypeTiptap,
		Data:        models.PlainData(body),
		DateCreated: time.UnixMilli(1_700_000_000_000),
	}
}

func TestAppend_IsAppendOnly(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	first := entry("s1", "n1", "<p>a</p>")
	second := entry("s1", "n1", "<p>b</p>")
	require.NoError(t, r.Append(ctx, first))
	require.NoError(t, r.Append(ctx, second))
	assert.Greater(t, second.Seq, first.Seq)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM session_content WHERE session_id='s1'`).Scan(&n))
	assert.Equal(t, 2, n)

	latest, err := r.Latest(ctx, "s1", "n1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Data.Equal(models.PlainData("<p>b</p>")))
}

func TestLatest_Missing(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	got, err := r.Latest(context.Background(), "none", "n1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListByNote_NewestFirstAndScoped(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Append(ctx, entry("s1", "n1", "<p>1</p>")))
	require.NoError(t, r.Append(ctx, entry("s2", "n1", "<p>2</p>")))
	require.NoError(t, r.Append(ctx, entry("s2", "n2", "<p>other</p>")))

	list, err := r.ListByNote(ctx, "n1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].SessionID)
	assert.Equal(t, "s1", list[1].SessionID)
}

func TestAppend_LockedSnapshot(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	env, err := models.Seal(make([]byte, 32), []byte("x"))
	require.NoError(t, err)
	e := entry("s1", "n1", "")
	e.Data = models.EncryptedData(env)
	require.NoError(t, r.Append(ctx, e))

	var locked int
	require.NoError(t, db.QueryRow(`SELECT locked FROM session_content`).Scan(&locked))
	assert.Equal(t, 1, locked)

	got, err := r.Latest(ctx, "s1", "n1")
	require.NoError(t, err)
	assert.True(t, got.Locked())
}

func TestAppend_DBErrorWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO session_content`).WillReturnError(errors.New("readonly"))

	err = NewSQLiteRepository(db).Append(context.Background(), entry("s", "n", "x"))
	require.ErrorContains(t, err, "failed to append session content")
	require.NoError(t, mock.ExpectationsWereMet())
}
