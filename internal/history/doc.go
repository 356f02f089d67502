// Package history records completed and failed downloads in SQLite.
//
// The Store is a small append-mostly log used by `ytdesk history` and by the
// shell after each download. It follows the same conventions as the rest of
// the local state: WAL journal, a busy timeout, and a short retry loop around
// writes so a second ytdesk process reading the history never fails a save.
//
// Layout changes append a statement to migrations in schema.go. Databases
// written by a newer build are refused until `ytdesk history clear --reset`
// rebuilds them.
package history
