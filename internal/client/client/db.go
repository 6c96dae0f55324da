package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/migrations"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/history"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/relations"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"

	_ "modernc.org/sqlite"
)

// Repositories bundles the local stores bound to one database handle.
type Repositories struct {
	Metadata    metadata.Repository
	Content     content.Repository
	History     history.Repository
	Notes       notes.Repository
	Attachments attachments.Repository
	Relations   relations.Repository
}

// NewRepositories binds every repository to db (a *sql.DB or *sql.Tx).
func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Metadata:    metadata.NewSQLiteRepository(db),
		Content:     content.NewSQLiteRepository(db),
		History:     history.NewSQLiteRepository(db),
		Notes:       notes.NewSQLiteRepository(db),
		Attachments: attachments.NewSQLiteRepository(db),
		Relations:   relations.NewSQLiteRepository(db),
	}
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrations.Up(ctx, db)
}

// InitDatabase opens the SQLite database at path and migrates it.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
