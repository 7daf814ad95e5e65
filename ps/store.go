package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"

	"github.com/stratadb/strata/core"
)

var ErrNotInitialized = errors.New("state store not initialized")

// seedIdentity authors the initial empty commit so tags and resets always
// have a commit to anchor on.
var seedIdentity = core.Identity{Name: "strata", Email: "strata@localhost"}

// Store keeps all engine state inside a git repository. Memory mode backs
// the repository with in-process storage; file mode keeps a working copy on
// disk.
type Store struct {
	repo         *git.Repository
	mu           sync.RWMutex
	isMemoryMode bool
}

// IsInitialized returns true if the store has a valid repository.
func (s *Store) IsInitialized() bool {
	return s != nil && s.repo != nil
}

func (s *Store) ensureInitialized() error {
	if !s.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// RLock acquires a read lock for concurrent read operations.
func (s *Store) RLock() {
	s.mu.RLock()
}

// RUnlock releases the read lock.
func (s *Store) RUnlock() {
	s.mu.RUnlock()
}

// Lock acquires a write lock for exclusive write operations.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the write lock.
func (s *Store) Unlock() {
	s.mu.Unlock()
}

func NewMemoryStore() (*Store, error) {
	wt := memfs.New()
	storer := memory.NewStorage()

	repo, err := git.Init(storer, git.WithWorkTree(wt))
	if err != nil {
		return nil, err
	}

	store := &Store{
		repo:         repo,
		isMemoryMode: true,
	}
	if err := store.seed(); err != nil {
		return nil, err
	}

	return store, nil
}

func NewFileStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	fs, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		fs,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	if _, statErr := os.Stat(fs.Root()); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	store := &Store{repo: repo}
	if err := store.seed(); err != nil {
		return nil, err
	}

	return store, nil
}

// seed commits an empty tree when the repository has no history yet.
func (s *Store) seed() error {
	if _, err := s.repo.Head(); err == nil {
		return nil
	}

	if _, err := s.createCommitDirect(plumbing.ZeroHash, seedIdentity, "Initializing store"); err != nil {
		return err
	}

	return s.syncWorktree()
}
