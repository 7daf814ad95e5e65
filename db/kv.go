package db

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/stratadb/strata/core"
)

// kvEntry stores the full key alongside the value, since the blob path only
// carries a hash prefix.
type kvEntry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func kvPath(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "kv/" + hex.EncodeToString(sum[:8])
}

// PutKV stores a value under a key, replacing any previous value.
func (e *Engine) PutKV(key string, value any) error {
	e.store.Lock()
	defer e.store.Unlock()

	data, err := json.Marshal(kvEntry{Key: key, Value: core.Normalize(value)})
	if err != nil {
		return err
	}

	if _, err := e.store.WriteFile(kvPath(key), data, e.identity, fmt.Sprintf("Setting key %s", key)); err != nil {
		return err
	}

	e.log.Debugw("key set", "key", key)
	return nil
}

// GetKV returns the value stored under a key.
func (e *Engine) GetKV(key string) (any, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	entry, err := e.readKV(key)
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

// DeleteKV removes a key. NotFound when the key is absent.
func (e *Engine) DeleteKV(key string) error {
	e.store.Lock()
	defer e.store.Unlock()

	if _, err := e.readKV(key); err != nil {
		return err
	}

	_, err := e.store.DeletePaths([]string{kvPath(key)}, e.identity, fmt.Sprintf("Deleting key %s", key))
	return err
}

// readKV loads and decodes one key blob. Callers hold the store lock.
func (e *Engine) readKV(key string) (kvEntry, error) {
	data, ok := e.store.ReadFile(kvPath(key))
	if !ok {
		return kvEntry{}, core.NotFoundf("key `%s` not found", key)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var entry kvEntry
	if err := dec.Decode(&entry); err != nil {
		return kvEntry{}, fmt.Errorf("failed to decode key %s: %w", key, err)
	}
	if entry.Key != key {
		return kvEntry{}, core.NotFoundf("key `%s` not found", key)
	}

	entry.Value = core.Normalize(entry.Value)
	return entry, nil
}
