package bridge

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/stratadb/strata/core"
)

// ExportJSONL writes every row of a table as one JSON object per line, in
// insertion order, with the surrogate id included as "id".
func (b *Bridge) ExportJSONL(table, path string) (int, error) {
	resolved, err := b.resolve(path)
	if err != nil {
		return 0, err
	}

	rows, err := b.engine.FetchAll(table)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	for _, row := range rows {
		doc := make(map[string]any, len(row.Data)+1)
		for k, v := range row.Data {
			doc[k] = v
		}
		doc["id"] = row.ID

		line, err := json.Marshal(doc)
		if err != nil {
			return 0, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := atomic.WriteFile(resolved, &buf); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}

	b.log.Infow("jsonl exported", "table", table, "rows", len(rows), "path", resolved)
	return len(rows), nil
}

// ImportJSONL reads one JSON object per line into a table. The whole file
// is parsed and validated before a single batch commit writes every row, so
// a malformed or invalid line anywhere leaves the table untouched. An "id"
// field on a line is ignored; rows get fresh ids.
func (b *Bridge) ImportJSONL(table, path string) (int, error) {
	resolved, err := b.resolve(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, core.NotFoundf("import file `%s` does not exist", path)
		}
		return 0, err
	}
	if info.Size() > b.limits.MaxImportBytes {
		return 0, core.LimitExceededf("import file exceeds maximum of %d bytes", b.limits.MaxImportBytes)
	}

	file, err := os.Open(resolved)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var docs []map[string]any
	lines := 0

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), int(b.limits.MaxImportBytes))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		lines++
		if lines > b.limits.MaxImportLines {
			return 0, core.LimitExceededf("import file exceeds maximum of %d lines", b.limits.MaxImportLines)
		}

		doc, err := core.DecodeDocument(line)
		if err != nil {
			return 0, core.Validationf("line %d is not a JSON object", lines)
		}
		delete(doc, "id")
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	if _, err := b.engine.InsertBatch(table, docs); err != nil {
		return 0, err
	}

	b.log.Infow("jsonl imported", "table", table, "rows", len(docs), "path", resolved)
	return len(docs), nil
}
