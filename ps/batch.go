package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6/plumbing"

	"github.com/stratadb/strata/core"
)

// Operation represents a single write or delete in a batch.
type Operation struct {
	Type OperationType
	Path string
	Data []byte
}

type OperationType int

const (
	WriteOp OperationType = iota
	DeleteOp
)

// Batch collects multiple path operations into a single commit, so the
// whole group either lands or leaves no trace.
type Batch struct {
	store      *Store
	operations []Operation
	started    bool
}

// BeginBatch creates a new batch for atomic multi-path commits.
func (s *Store) BeginBatch() (*Batch, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	return &Batch{
		store:      s,
		operations: make([]Operation, 0),
		started:    true,
	}, nil
}

// AddWrite stages a file write.
func (b *Batch) AddWrite(path string, data []byte) error {
	if !b.started {
		return fmt.Errorf("batch not started")
	}

	b.operations = append(b.operations, Operation{
		Type: WriteOp,
		Path: path,
		Data: data,
	})

	return nil
}

// AddDelete stages a file deletion.
func (b *Batch) AddDelete(path string) error {
	if !b.started {
		return fmt.Errorf("batch not started")
	}

	b.operations = append(b.operations, Operation{
		Type: DeleteOp,
		Path: path,
	})

	return nil
}

// Commit applies all staged operations in a single git commit.
func (b *Batch) Commit(identity core.Identity, message string) (Revision, error) {
	if !b.started {
		return Revision{}, fmt.Errorf("batch not started")
	}

	if len(b.operations) == 0 {
		return Revision{}, fmt.Errorf("no operations to commit")
	}

	currentTree, err := b.store.getCurrentTree()
	if err != nil {
		return Revision{}, err
	}

	changes := make([]Change, 0, len(b.operations))
	for _, op := range b.operations {
		switch op.Type {
		case WriteOp:
			blobHash, err := b.store.createBlob(op.Data)
			if err != nil {
				return Revision{}, fmt.Errorf("failed to create blob for %s: %w", op.Path, err)
			}
			changes = append(changes, Change{
				Path:     op.Path,
				BlobHash: blobHash,
			})
		case DeleteOp:
			changes = append(changes, Change{
				Path:     op.Path,
				IsDelete: true,
			})
		}
	}

	newTree, err := b.store.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to update tree: %w", err)
	}

	rev, err := b.store.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to commit: %w", err)
	}

	if err := b.store.syncWorktree(); err != nil {
		return Revision{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	// Mark batch as completed
	b.started = false
	b.operations = nil

	return rev, nil
}

// Rollback discards all staged operations without committing.
func (b *Batch) Rollback() {
	b.started = false
	b.operations = nil
}

// OperationCount returns the number of staged operations.
func (b *Batch) OperationCount() int {
	return len(b.operations)
}

// ReplaceAll commits a tree built from scratch out of the given writes,
// discarding every path not listed. Used when a loaded state document has
// to replace live state wholesale.
func (s *Store) ReplaceAll(writes map[string][]byte, identity core.Identity, message string) (Revision, error) {
	if err := s.ensureInitialized(); err != nil {
		return Revision{}, err
	}

	changes := make([]Change, 0, len(writes))
	for path, data := range writes {
		blobHash, err := s.createBlob(data)
		if err != nil {
			return Revision{}, fmt.Errorf("failed to create blob for %s: %w", path, err)
		}
		changes = append(changes, Change{Path: path, BlobHash: blobHash})
	}

	newTree, err := s.batchUpdateTree(plumbing.ZeroHash, changes)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to build tree: %w", err)
	}

	rev, err := s.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Revision{}, err
	}

	if err := s.syncWorktree(); err != nil {
		return Revision{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return rev, nil
}
