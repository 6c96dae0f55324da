// Package cli provides the interactive notekeeper command-line client.
//
// It drives the note services through a REPL: login with offline
// fallback, note editing in markdown, history, publishing, conflict
// resolution and background sync. The REPL is started via App.Root(ctx),
// which blocks until the user exits.
package cli
