package db

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/natefinch/atomic"

	"github.com/stratadb/strata/core"
)

const stateVersion = 1

type savedRow struct {
	ID   uint64         `json:"id"`
	Data map[string]any `json:"data"`
}

type savedTable struct {
	Schema core.Schema `json:"schema"`
	Rows   []savedRow  `json:"rows"`
}

type stateDocument struct {
	Version   int            `json:"version"`
	Tables    []savedTable   `json:"tables"`
	Relations []core.Edge    `json:"relations,omitempty"`
	KV        map[string]any `json:"kv,omitempty"`
}

// Save writes the whole engine state to one file: a sha256 checksum of the
// gzip-compressed JSON document, then the compressed document. The file is
// written to a temp path and renamed, so a crash never leaves a torn file.
func (e *Engine) Save(path string) error {
	e.store.RLock()
	doc, err := e.collectState()
	e.store.RUnlock()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	sum := sha256.Sum256(buf.Bytes())
	payload := make([]byte, 0, len(sum)+buf.Len())
	payload = append(payload, sum[:]...)
	payload = append(payload, buf.Bytes()...)

	if err := atomic.WriteFile(path, bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("failed to write save file: %w", err)
	}

	e.log.Infow("state saved", "path", path, "tables", len(doc.Tables))
	return nil
}

// Load replaces the live state with the one in a save file. A missing file,
// a bad checksum or a malformed document fails before anything is touched.
func (e *Engine) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NotFoundf("save file `%s` does not exist", path)
		}
		return err
	}

	if len(payload) < sha256.Size {
		return core.Validationf("save file is corrupted")
	}

	compressed := payload[sha256.Size:]
	sum := sha256.Sum256(compressed)
	if !bytes.Equal(sum[:], payload[:sha256.Size]) {
		return core.Validationf("save file checksum mismatch")
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return core.Validationf("save file is corrupted")
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return core.Validationf("save file is corrupted")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc stateDocument
	if err := dec.Decode(&doc); err != nil {
		return core.Validationf("save file is corrupted")
	}
	if doc.Version != stateVersion {
		return core.Validationf("unsupported save file version %d", doc.Version)
	}

	writes, err := buildStateWrites(&doc)
	if err != nil {
		return err
	}

	e.store.Lock()
	defer e.store.Unlock()

	if _, err := e.store.ReplaceAll(writes, e.identity, fmt.Sprintf("Loading state from %s", path)); err != nil {
		return err
	}

	e.log.Infow("state loaded", "path", path, "tables", len(doc.Tables))
	return nil
}

// collectState gathers every table, edge and key into one document.
// Callers hold the store lock.
func (e *Engine) collectState() (*stateDocument, error) {
	doc := &stateDocument{Version: stateVersion}

	names, err := e.tableNames()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		schema, err := e.loadSchema(name)
		if err != nil {
			return nil, err
		}
		rows, err := e.listRows(name)
		if err != nil {
			return nil, err
		}

		saved := savedTable{Schema: *schema, Rows: make([]savedRow, 0, len(rows))}
		for _, row := range rows {
			saved.Rows = append(saved.Rows, savedRow{ID: row.ID, Data: row.Data})
		}
		doc.Tables = append(doc.Tables, saved)
	}

	doc.Relations, err = e.loadEdges()
	if err != nil {
		return nil, err
	}

	entries, err := e.store.ListEntries("kv")
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		doc.KV = make(map[string]any, len(entries))
		for _, entry := range entries {
			if entry.IsDir {
				continue
			}
			data, ok := e.store.ReadFile("kv/" + entry.Name)
			if !ok {
				continue
			}
			var kv kvEntry
			if err := json.Unmarshal(data, &kv); err != nil {
				return nil, fmt.Errorf("failed to decode key blob %s: %w", entry.Name, err)
			}
			doc.KV[kv.Key] = kv.Value
		}
	}

	return doc, nil
}

// buildStateWrites flattens a state document into the blob layout.
func buildStateWrites(doc *stateDocument) (map[string][]byte, error) {
	writes := make(map[string][]byte)

	for i := range doc.Tables {
		table := &doc.Tables[i]

		schemaData, err := json.Marshal(table.Schema)
		if err != nil {
			return nil, err
		}
		writes[schemaPath(table.Schema.Name)] = schemaData

		for _, row := range table.Rows {
			rowData, err := json.Marshal(core.NormalizeMap(row.Data))
			if err != nil {
				return nil, err
			}
			writes[rowPath(table.Schema.Name, row.ID)] = rowData
		}
	}

	if len(doc.Relations) > 0 {
		data, err := encodeEdges(doc.Relations)
		if err != nil {
			return nil, err
		}
		writes[relationsPath] = data
	}

	for key, value := range doc.KV {
		data, err := json.Marshal(kvEntry{Key: key, Value: core.Normalize(value)})
		if err != nil {
			return nil, err
		}
		writes[kvPath(key)] = data
	}

	return writes, nil
}
