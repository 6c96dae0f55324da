// Package attachments provides the client-side persistence layer for
// attachment metadata.
//
// # Overview
//
// Attachments are addressed by the hash of their plaintext. The blob itself
// lives encrypted on disk (see services.AttachmentService); this package
// stores only metadata, upload state and a soft-delete flag. A SQLite-backed
// implementation (SQLiteRepository) persists data via a dbx.DBTX
// (*sql.DB or *sql.Tx).
//
// Typical Usage
//
//	repo := attachments.NewSQLiteRepository(db)
//	_ = repo.Create(ctx, a)
//	a, _ := repo.GetByHash(ctx, hash)
//	pend, _ := repo.GetAllPendingUpload(ctx)
//	_ = repo.MarkUploaded(ctx, hash)
package attachments
