package bridge

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/stratadb/strata/core"
)

func sqliteColumnType(t core.FieldType) string {
	switch t {
	case core.IntegerType, core.BooleanType:
		return "INTEGER"
	case core.FloatType:
		return "REAL"
	}
	return "TEXT"
}

// ExportSQLite writes a table into a SQLite database file. The destination
// table is recreated as `"t"(id INTEGER PRIMARY KEY, <schema columns,
// sorted>)`. All identifiers are validated before the file is opened.
func (b *Bridge) ExportSQLite(table, path string) (int, error) {
	if err := core.ValidateIdentifier(table); err != nil {
		return 0, err
	}

	schema, err := b.engine.Schema(table)
	if err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(schema.Fields))
	for field := range schema.Fields {
		if err := core.ValidateIdentifier(field); err != nil {
			return 0, err
		}
		columns = append(columns, field)
	}
	sort.Strings(columns)

	resolved, err := b.resolve(path)
	if err != nil {
		return 0, err
	}

	rows, err := b.engine.FetchAll(table)
	if err != nil {
		return 0, err
	}

	conn, err := sql.Open("sqlite", resolved)
	if err != nil {
		return 0, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer conn.Close()

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, "id INTEGER PRIMARY KEY")
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%q %s", col, sqliteColumnType(schema.Fields[col].Type)))
	}

	tx, err := conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %q", table)); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(fmt.Sprintf("CREATE TABLE %q (%s)", table, strings.Join(defs, ", "))); err != nil {
		return 0, err
	}

	placeholders := make([]string, 0, len(columns)+1)
	quoted := make([]string, 0, len(columns)+1)
	quoted = append(quoted, "id")
	placeholders = append(placeholders, "?")
	for _, col := range columns {
		quoted = append(quoted, fmt.Sprintf("%q", col))
		placeholders = append(placeholders, "?")
	}

	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", ")))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, 0, len(columns)+1)
		args = append(args, int64(row.ID))
		for _, col := range columns {
			arg, err := sqliteValue(row.Data[col])
			if err != nil {
				return 0, err
			}
			args = append(args, arg)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	b.log.Infow("sqlite exported", "table", table, "rows", len(rows), "path", resolved)
	return len(rows), nil
}

// ImportSQLite reads rows from a table of a SQLite database file. srcTable
// defaults to the destination table name. The "id" column and, for strict
// schemas, any column not in the schema are skipped. All rows land in one
// batch commit or none do.
func (b *Bridge) ImportSQLite(table, path, srcTable string) (int, error) {
	if srcTable == "" {
		srcTable = table
	}
	if err := core.ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := core.ValidateIdentifier(srcTable); err != nil {
		return 0, err
	}

	schema, err := b.engine.Schema(table)
	if err != nil {
		return 0, err
	}

	resolved, err := b.resolve(path)
	if err != nil {
		return 0, err
	}

	if _, err := os.Stat(resolved); err != nil {
		if os.IsNotExist(err) {
			return 0, core.NotFoundf("import file `%s` does not exist", path)
		}
		return 0, err
	}

	conn, err := sql.Open("sqlite", resolved)
	if err != nil {
		return 0, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer conn.Close()

	result, err := conn.Query(fmt.Sprintf("SELECT * FROM %q", srcTable))
	if err != nil {
		return 0, core.NotFoundf("table `%s` not found in `%s`", srcTable, path)
	}
	defer result.Close()

	columns, err := result.Columns()
	if err != nil {
		return 0, err
	}

	var docs []map[string]any
	for result.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := result.Scan(targets...); err != nil {
			return 0, err
		}

		doc := make(map[string]any, len(columns))
		for i, col := range columns {
			if col == "id" {
				continue
			}
			spec, declared := schema.Fields[col]
			if !declared && !schema.Flexible {
				continue
			}
			value, err := engineValue(values[i], spec.Type, declared)
			if err != nil {
				return 0, err
			}
			doc[col] = value
		}
		docs = append(docs, doc)
	}
	if err := result.Err(); err != nil {
		return 0, err
	}

	if _, err := b.engine.InsertBatch(table, docs); err != nil {
		return 0, err
	}

	b.log.Infow("sqlite imported", "table", table, "rows", len(docs), "path", resolved)
	return len(docs), nil
}

// sqliteValue maps an engine value onto a SQLite binding. Booleans become
// 0/1, JSON values become their serialized text.
func sqliteValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case int64, float64, string:
		return v, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// engineValue maps a scanned SQLite value back onto the engine forms the
// destination field expects, undoing the export encoding.
func engineValue(value any, fieldType core.FieldType, declared bool) (any, error) {
	if data, ok := value.([]byte); ok {
		value = string(data)
	}

	if !declared {
		return core.Normalize(value), nil
	}

	switch fieldType {
	case core.BooleanType:
		if n, ok := value.(int64); ok {
			return n != 0, nil
		}
	case core.JSONType:
		if s, ok := value.(string); ok {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return core.Normalize(decoded), nil
			}
		}
	}

	return core.Normalize(value), nil
}
