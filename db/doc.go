// Package db implements the strata engine: schema-validated tables with
// surrogate ids, a composable query pipeline, directed labeled relations, a
// flat key-value namespace, named checkpoints with atomic rollback, and
// whole-engine save/load to a single checksummed file.
package db
