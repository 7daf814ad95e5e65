package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"

	"github.com/stratadb/strata/core"
)

// Revision identifies one committed state of the store.
type Revision struct {
	ID   string
	When time.Time
}

// createBlob creates a blob object directly in the object store without filesystem I/O
func (s *Store) createBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// getCurrentTree returns the tree hash from the current HEAD commit.
// Returns ZeroHash if repository has no commits yet.
func (s *Store) getCurrentTree() (plumbing.Hash, error) {
	headRef, err := s.repo.Head()
	if err != nil {
		// No commits yet - return zero hash
		return plumbing.ZeroHash, nil
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}

	return commit.TreeHash, nil
}

// getTreeEntries reads all entries from an existing tree, returning a map of path -> hash/mode
func (s *Store) getTreeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)

	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(s.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}

	return entries, nil
}

// buildTreeFromEntries creates a tree object from a list of entries
func (s *Store) buildTreeFromEntries(entries []object.TreeEntry) (plumbing.Hash, error) {
	// Sort entries by name (Git requirement)
	sort.Slice(entries, func(i, j int) bool {
		// Directories are sorted with trailing slash for comparison
		nameI := entries[i].Name
		nameJ := entries[j].Name
		if entries[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	tree := &object.Tree{Entries: entries}

	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

// Change represents a single change to apply to the state tree.
type Change struct {
	Path     string        // File path (e.g., "users/00000000000000000001")
	BlobHash plumbing.Hash // Blob hash to set (ZeroHash = delete)
	IsDelete bool          // True if this is a deletion
}

// batchUpdateTree applies multiple changes to a tree in a single operation.
// This is more efficient than updating paths one at a time because it builds
// each intermediate tree once.
func (s *Store) batchUpdateTree(rootTreeHash plumbing.Hash, changes []Change) (plumbing.Hash, error) {
	if len(changes) == 0 {
		return rootTreeHash, nil
	}

	// Group changes by top-level directory
	grouped := make(map[string][]Change)
	leafChanges := make([]Change, 0)

	for _, change := range changes {
		parts := strings.Split(change.Path, "/")
		if len(parts) == 1 {
			// Leaf change at root level
			leafChanges = append(leafChanges, change)
		} else {
			// Group by first directory
			dir := parts[0]
			subChange := Change{
				Path:     strings.Join(parts[1:], "/"),
				BlobHash: change.BlobHash,
				IsDelete: change.IsDelete,
			}
			grouped[dir] = append(grouped[dir], subChange)
		}
	}

	// Get current tree entries
	entries, err := s.getTreeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// Apply leaf changes at this level
	for _, change := range leafChanges {
		name := change.Path
		if change.IsDelete {
			delete(entries, name)
		} else {
			entries[name] = object.TreeEntry{
				Name: name,
				Mode: filemode.Regular,
				Hash: change.BlobHash,
			}
		}
	}

	// Recursively apply grouped changes to subdirectories
	for dir, subChanges := range grouped {
		var subTreeHash plumbing.Hash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTreeHash = existing.Hash
		} else {
			subTreeHash = plumbing.ZeroHash
		}

		newSubTreeHash, err := s.batchUpdateTree(subTreeHash, subChanges)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTreeHash == plumbing.ZeroHash {
			// Subtree is now empty, remove directory entry
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{
				Name: dir,
				Mode: filemode.Dir,
				Hash: newSubTreeHash,
			}
		}
	}

	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	// Convert map to slice and build new tree
	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		entrySlice = append(entrySlice, entry)
	}

	return s.buildTreeFromEntries(entrySlice)
}

// createCommitDirect creates a commit object directly without using worktree
func (s *Store) createCommitDirect(treeHash plumbing.Hash, identity core.Identity, message string) (Revision, error) {
	// Handle empty tree case - create an actual empty tree object
	actualTreeHash := treeHash
	if treeHash == plumbing.ZeroHash {
		emptyTree := &object.Tree{Entries: []object.TreeEntry{}}
		obj := s.repo.Storer.NewEncodedObject()
		if err := emptyTree.Encode(obj); err != nil {
			return Revision{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		actualTreeHash, err = s.repo.Storer.SetEncodedObject(obj)
		if err != nil {
			return Revision{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	// Get parent commit
	var parentHashes []plumbing.Hash
	headRef, err := s.repo.Head()
	if err == nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     actualTreeHash,
		ParentHashes: parentHashes,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Revision{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to store commit: %w", err)
	}

	// Update HEAD reference
	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return Revision{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Revision{
		ID:   commitHash.String(),
		When: sig.When,
	}, nil
}

// syncWorktree updates the worktree filesystem to match HEAD.
// For memory mode, this is skipped since reads use the Git tree directly.
func (s *Store) syncWorktree() error {
	if s.isMemoryMode {
		return nil
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return err
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// If the tree is empty, clean the filesystem manually instead of reset
	// (git reset fails with "base dir cannot be removed" on empty tree)
	if len(tree.Entries) == 0 {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil // Dir might not exist, that's fine
		}
		for _, entry := range entries {
			if entry.Name() != ".git" {
				fs.Remove(entry.Name())
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}

// WriteFile writes a single file to the store in one commit.
func (s *Store) WriteFile(filePath string, data []byte, identity core.Identity, message string) (Revision, error) {
	if err := s.ensureInitialized(); err != nil {
		return Revision{}, err
	}

	currentTree, err := s.getCurrentTree()
	if err != nil {
		return Revision{}, err
	}

	blobHash, err := s.createBlob(data)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to create blob: %w", err)
	}

	newTree, err := s.batchUpdateTree(currentTree, []Change{{Path: filePath, BlobHash: blobHash}})
	if err != nil {
		return Revision{}, fmt.Errorf("failed to update tree: %w", err)
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

// DeletePaths deletes one or more paths from the store in one commit.
func (s *Store) DeletePaths(paths []string, identity core.Identity, message string) (Revision, error) {
	if err := s.ensureInitialized(); err != nil {
		return Revision{}, err
	}

	currentTree, err := s.getCurrentTree()
	if err != nil {
		return Revision{}, err
	}

	changes := make([]Change, 0, len(paths))
	for _, filePath := range paths {
		changes = append(changes, Change{Path: filePath, IsDelete: true})
	}

	newTree, err := s.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Revision{}, fmt.Errorf("failed to update tree: %w", err)
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

// ReadFile reads a file directly from the Git tree (bypasses worktree filesystem).
func (s *Store) ReadFile(filePath string) ([]byte, bool) {
	if !s.IsInitialized() {
		return nil, false
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil, false
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, false
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, false
	}

	file, err := tree.File(filePath)
	if err != nil {
		return nil, false
	}

	content, err := file.Contents()
	if err != nil {
		return nil, false
	}

	return []byte(content), true
}

// Entry represents a directory entry from the Git tree.
type Entry struct {
	Name  string
	IsDir bool
}

// ListEntries lists directory entries directly from the Git tree. Git keeps
// tree entries sorted by name, so the result is in lexicographic order.
func (s *Store) ListEntries(dirPath string) ([]Entry, error) {
	if !s.IsInitialized() {
		return nil, ErrNotInitialized
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil, nil // No commits yet = empty directory
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	// If dirPath is empty or ".", list root entries
	var targetTree *object.Tree
	if dirPath == "" || dirPath == "." {
		targetTree = tree
	} else {
		targetTree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil // Directory doesn't exist = empty
		}
	}

	var entries []Entry
	for _, entry := range targetTree.Entries {
		entries = append(entries, Entry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}

	return entries, nil
}

// Head returns the revision at the current branch tip.
func (s *Store) Head() (Revision, error) {
	if err := s.ensureInitialized(); err != nil {
		return Revision{}, err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return Revision{}, fmt.Errorf("no commits yet: %w", err)
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Revision{}, fmt.Errorf("failed to get commit: %w", err)
	}

	return Revision{
		ID:   commit.Hash.String(),
		When: commit.Committer.When,
	}, nil
}
