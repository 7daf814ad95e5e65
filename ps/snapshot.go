package ps

import (
	"fmt"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Tag marks the current HEAD with a lightweight tag. An existing tag with
// the same name is replaced.
func (s *Store) Tag(name string) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("no commits yet: %w", err)
	}

	if _, err := s.repo.Tag(name); err == nil {
		if err := s.repo.DeleteTag(name); err != nil {
			return fmt.Errorf("failed to replace tag %s: %w", name, err)
		}
	}

	_, err = s.repo.CreateTag(name, headRef.Hash(), nil)
	return err
}

// HasTag reports whether a tag with the given name exists.
func (s *Store) HasTag(name string) bool {
	if !s.IsInitialized() {
		return false
	}
	_, err := s.repo.Tag(name)
	return err == nil
}

// Tags returns all tag names.
func (s *Store) Tags() ([]string, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	iter, err := s.repo.Tags()
	if err != nil {
		return nil, err
	}

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

// ResetTo moves the current branch to the tagged commit. The swap is a
// single reference update over the content-addressed object store, so
// readers see either the old state or the tagged one, never a mix.
func (s *Store) ResetTo(name string) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}

	ref, err := s.repo.Tag(name)
	if err != nil {
		return fmt.Errorf("tag %s not found: %w", name, err)
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return fmt.Errorf("no commits yet: %w", err)
	}

	branchName := plumbing.Master
	if headRef.Name().IsBranch() {
		branchName = headRef.Name()
	}

	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(branchName, ref.Hash())); err != nil {
		return fmt.Errorf("failed to move branch: %w", err)
	}

	if s.isMemoryMode {
		return nil
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return err
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: ref.Hash(),
	})
}
