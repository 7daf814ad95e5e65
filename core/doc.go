// Package core holds the shared value types of the strata engine: field
// types and schemas, rows, relation edges, commit identities and the coded
// error taxonomy.
package core
