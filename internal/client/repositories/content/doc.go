// Package content provides the client-side persistence layer for note bodies.
//
// # Overview
//
// The package defines a Repository interface for storing Content records (see
// internal/client/models). A SQLite-backed implementation (SQLiteRepository)
// persists data using a dbx.DBTX (either *sql.DB or *sql.Tx).
//
// # Data Model
//
// The data column holds the JSON form of models.Data: a JSON string for
// plaintext bodies, a cipher envelope object for encrypted ones. The locked
// column is written from the active variant and is informational only; reads
// derive the lock state from data. Rows are soft-deleted (deleted=1) and
// flagged pending until pushed.
//
// Normal reads skip tombstones. GetRaw bypasses that filter for sync and
// diagnostics.
//
// Typical Usage
//
//	repo := content.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, c)
//	live, _ := repo.FindByNoteID(ctx, noteID)
//	_, _ = repo.SoftDelete(ctx, now, id)
//	pend, _ := repo.GetAllPending(ctx)
package content
