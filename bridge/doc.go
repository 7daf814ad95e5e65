// Package bridge imports and exports table data as JSONL files and SQLite
// databases, confined to one base directory. Paths and identifiers are
// validated before any file is touched, and imports are all-or-nothing.
package bridge
