package db

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/ps"
)

// Engine is the schema-validated table store. All state lives in the
// underlying ps.Store; the engine adds schemas, validation, queries,
// relations, the key-value namespace and checkpoints on top.
type Engine struct {
	store    *ps.Store
	identity core.Identity
	cfg      Config
	log      *zap.SugaredLogger
}

func NewEngine(store *ps.Store, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		store:    store,
		identity: cfg.Identity,
		cfg:      cfg,
		log:      cfg.logger(),
	}
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() Config {
	return e.cfg
}

// Store exposes the underlying state store.
func (e *Engine) Store() *ps.Store {
	return e.store
}

func schemaPath(table string) string {
	return table + ".table"
}

func rowPath(table string, id uint64) string {
	return fmt.Sprintf("%s/%020d", table, id)
}

// CreateTable registers a strict table: only declared fields are accepted.
func (e *Engine) CreateTable(name string, fields map[string]core.FieldSpec) error {
	return e.createTable(name, fields, false)
}

// CreateFlexTable registers a flexible table: declared fields are validated,
// undeclared fields pass through.
func (e *Engine) CreateFlexTable(name string, fields map[string]core.FieldType) error {
	specs := make(map[string]core.FieldSpec, len(fields))
	for field, t := range fields {
		specs[field] = core.FieldSpec{Type: t}
	}
	return e.createTable(name, specs, true)
}

func (e *Engine) createTable(name string, fields map[string]core.FieldSpec, flexible bool) error {
	if err := core.ValidateIdentifier(name); err != nil {
		return err
	}
	for field := range fields {
		if err := core.ValidateIdentifier(field); err != nil {
			return err
		}
	}

	e.store.Lock()
	defer e.store.Unlock()

	if _, ok := e.store.ReadFile(schemaPath(name)); ok {
		return core.Conflictf("table `%s` already exists", name)
	}

	schema := core.Schema{
		Name:     name,
		Fields:   fields,
		Flexible: flexible,
		NextID:   1,
	}

	if err := e.writeSchema(&schema, fmt.Sprintf("Creating table %s", name)); err != nil {
		return err
	}

	e.log.Debugw("table created", "table", name, "fields", len(fields), "flexible", flexible)
	return nil
}

// DropTable removes a table's schema and all of its rows in one commit.
func (e *Engine) DropTable(name string) error {
	e.store.Lock()
	defer e.store.Unlock()

	if _, err := e.loadSchema(name); err != nil {
		return err
	}

	paths := []string{schemaPath(name)}
	entries, err := e.store.ListEntries(name)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir {
			paths = append(paths, name+"/"+entry.Name)
		}
	}

	if _, err := e.store.DeletePaths(paths, e.identity, fmt.Sprintf("Dropping table %s", name)); err != nil {
		return err
	}

	e.log.Debugw("table dropped", "table", name)
	return nil
}

// Insert validates data against the table schema and stores it under a
// fresh surrogate id. Nothing is written when validation fails.
func (e *Engine) Insert(table string, data map[string]any) (uint64, error) {
	e.store.Lock()
	defer e.store.Unlock()

	schema, err := e.loadSchema(table)
	if err != nil {
		return 0, err
	}
	rows, err := e.listRows(table)
	if err != nil {
		return 0, err
	}

	clean, err := validateRow(schema, core.NormalizeMap(cloneDoc(data)), rows, 0)
	if err != nil {
		return 0, err
	}

	id := schema.NextID
	schema.NextID++

	rowData, err := json.Marshal(clean)
	if err != nil {
		return 0, err
	}
	schemaData, err := json.Marshal(schema)
	if err != nil {
		return 0, err
	}

	batch, err := e.store.BeginBatch()
	if err != nil {
		return 0, err
	}
	batch.AddWrite(schemaPath(table), schemaData)
	batch.AddWrite(rowPath(table, id), rowData)

	if _, err := batch.Commit(e.identity, fmt.Sprintf("Inserting into %s", table)); err != nil {
		return 0, err
	}

	e.log.Debugw("row inserted", "table", table, "id", id)
	return id, nil
}

// InsertBatch validates every document first, then writes them all in one
// commit. Any failure leaves the table untouched. Uniqueness is enforced
// across the batch as well as against stored rows.
func (e *Engine) InsertBatch(table string, docs []map[string]any) ([]uint64, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	e.store.Lock()
	defer e.store.Unlock()

	schema, err := e.loadSchema(table)
	if err != nil {
		return nil, err
	}
	rows, err := e.listRows(table)
	if err != nil {
		return nil, err
	}

	batch, err := e.store.BeginBatch()
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(docs))
	for _, doc := range docs {
		clean, err := validateRow(schema, core.NormalizeMap(cloneDoc(doc)), rows, 0)
		if err != nil {
			return nil, err
		}

		id := schema.NextID
		schema.NextID++

		rowData, err := json.Marshal(clean)
		if err != nil {
			return nil, err
		}
		batch.AddWrite(rowPath(table, id), rowData)

		rows = append(rows, core.Row{ID: id, Data: clean})
		ids = append(ids, id)
	}

	schemaData, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	batch.AddWrite(schemaPath(table), schemaData)

	if _, err := batch.Commit(e.identity, fmt.Sprintf("Bulk inserting %d row(s) into %s", len(docs), table)); err != nil {
		return nil, err
	}

	e.log.Debugw("rows bulk inserted", "table", table, "count", len(ids))
	return ids, nil
}

// Update merges changes into every row matched by the selector,
// revalidating each merged row. The first failing row stops the call; its
// error is returned alongside the count of rows already written, which stay
// applied.
func (e *Engine) Update(table string, sel Selector, changes map[string]any) (int, error) {
	e.store.Lock()
	defer e.store.Unlock()

	schema, err := e.loadSchema(table)
	if err != nil {
		return 0, err
	}
	rows, err := e.listRows(table)
	if err != nil {
		return 0, err
	}

	normalized := core.NormalizeMap(cloneDoc(changes))

	count := 0
	for i := range rows {
		if !sel.matches(rows[i]) {
			continue
		}

		merged := cloneDoc(rows[i].Data)
		for k, v := range normalized {
			merged[k] = v
		}

		clean, err := validateRow(schema, merged, rows, rows[i].ID)
		if err != nil {
			return count, err
		}

		rowData, err := json.Marshal(clean)
		if err != nil {
			return count, err
		}
		if _, err := e.store.WriteFile(rowPath(table, rows[i].ID), rowData, e.identity, fmt.Sprintf("Updating %s/%d", table, rows[i].ID)); err != nil {
			return count, err
		}

		rows[i].Data = clean
		count++
	}

	e.log.Debugw("rows updated", "table", table, "count", count)
	return count, nil
}

// Remove deletes every row matched by the selector in one commit.
func (e *Engine) Remove(table string, sel Selector) (int, error) {
	e.store.Lock()
	defer e.store.Unlock()

	if _, err := e.loadSchema(table); err != nil {
		return 0, err
	}
	rows, err := e.listRows(table)
	if err != nil {
		return 0, err
	}

	var paths []string
	for _, row := range rows {
		if sel.matches(row) {
			paths = append(paths, rowPath(table, row.ID))
		}
	}
	if len(paths) == 0 {
		return 0, nil
	}

	if _, err := e.store.DeletePaths(paths, e.identity, fmt.Sprintf("Removing %d row(s) from %s", len(paths), table)); err != nil {
		return 0, err
	}

	e.log.Debugw("rows removed", "table", table, "count", len(paths))
	return len(paths), nil
}

// FetchAll returns the table's rows in insertion order, optionally filtered
// by a selector.
func (e *Engine) FetchAll(table string, sel ...Selector) ([]core.Row, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	if _, err := e.loadSchema(table); err != nil {
		return nil, err
	}
	rows, err := e.listRows(table)
	if err != nil {
		return nil, err
	}

	if len(sel) == 0 {
		return rows, nil
	}

	var matched []core.Row
	for _, row := range rows {
		if sel[0].matches(row) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// Tables returns all table names in sorted order.
func (e *Engine) Tables() ([]string, error) {
	e.store.RLock()
	defer e.store.RUnlock()
	return e.tableNames()
}

// Describe returns the table's field names in sorted order.
func (e *Engine) Describe(table string) ([]string, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	schema, err := e.loadSchema(table)
	if err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(schema.Fields))
	for field := range schema.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields, nil
}

// Schema returns a copy of the table's stored schema.
func (e *Engine) Schema(table string) (core.Schema, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	schema, err := e.loadSchema(table)
	if err != nil {
		return core.Schema{}, err
	}

	fields := make(map[string]core.FieldSpec, len(schema.Fields))
	for field, spec := range schema.Fields {
		fields[field] = spec
	}
	schema.Fields = fields
	return *schema, nil
}

// Count returns the number of rows in the table.
func (e *Engine) Count(table string) (int, error) {
	e.store.RLock()
	defer e.store.RUnlock()

	if _, err := e.loadSchema(table); err != nil {
		return 0, err
	}

	entries, err := e.store.ListEntries(table)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir {
			count++
		}
	}
	return count, nil
}

// loadSchema reads a table schema. Callers hold the store lock.
func (e *Engine) loadSchema(table string) (*core.Schema, error) {
	data, ok := e.store.ReadFile(schemaPath(table))
	if !ok {
		return nil, core.NotFoundf("table `%s` does not exist", table)
	}

	var schema core.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema for %s: %w", table, err)
	}
	return &schema, nil
}

func (e *Engine) writeSchema(schema *core.Schema, message string) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	_, err = e.store.WriteFile(schemaPath(schema.Name), data, e.identity, message)
	return err
}

// listRows reads all rows of a table in insertion order. Row files are
// named with zero-padded ids, so the git tree's lexicographic order is the
// numeric order. Callers hold the store lock.
func (e *Engine) listRows(table string) ([]core.Row, error) {
	entries, err := e.store.ListEntries(table)
	if err != nil {
		return nil, err
	}

	var rows []core.Row
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}

		id, err := strconv.ParseUint(entry.Name, 10, 64)
		if err != nil {
			continue
		}

		data, ok := e.store.ReadFile(table + "/" + entry.Name)
		if !ok {
			continue
		}

		doc, err := core.DecodeDocument(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %s/%d: %w", table, id, err)
		}

		rows = append(rows, core.Row{ID: id, Data: doc})
	}

	return rows, nil
}

// tableNames lists schema files at the tree root. Callers hold the store
// lock.
func (e *Engine) tableNames() ([]string, error) {
	entries, err := e.store.ListEntries(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir && strings.HasSuffix(entry.Name, ".table") {
			names = append(names, strings.TrimSuffix(entry.Name, ".table"))
		}
	}
	return names, nil
}

func cloneDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
