package db

import (
	"sort"

	"github.com/stratadb/strata/core"
)

// Checkpoint tags the current state under a name. Re-using a name moves the
// checkpoint to the current state.
func (e *Engine) Checkpoint(name string) error {
	if err := core.ValidateIdentifier(name); err != nil {
		return err
	}

	e.store.Lock()
	defer e.store.Unlock()

	if err := e.store.Tag(name); err != nil {
		return err
	}

	e.log.Debugw("checkpoint created", "name", name)
	return nil
}

// RollbackTo restores the full engine state recorded by a checkpoint:
// tables, rows, relations and keys alike. The swap happens under the write
// lock, so no reader observes a partial state.
func (e *Engine) RollbackTo(name string) error {
	e.store.Lock()
	defer e.store.Unlock()

	if !e.store.HasTag(name) {
		return core.NotFoundf("checkpoint `%s` not found", name)
	}

	if err := e.store.ResetTo(name); err != nil {
		return err
	}

	e.log.Debugw("rolled back", "name", name)
	return nil
}

// Snapshots lists all checkpoint names in sorted order.
func (e *Engine) Snapshots() ([]string, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	names, err := e.store.Tags()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
