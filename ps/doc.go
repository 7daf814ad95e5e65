// Package ps is the state store underneath the strata engine. Every piece
// of live state is a blob in a git repository; every mutation is a commit
// built with the plumbing API. Checkpoints are tags, rollback moves the
// branch reference.
package ps
