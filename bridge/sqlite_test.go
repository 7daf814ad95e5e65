package bridge

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/db"
)

func TestExportImportSQLiteRoundtrip(t *testing.T) {
	b, engine, _ := newTestBridge(t)

	engine.Insert("users", map[string]any{"name": "Alice", "email": "a@example.com", "age": 30, "is_active": true})
	engine.Insert("users", map[string]any{"name": "Bob", "email": "b@example.com", "age": 25, "is_active": false})

	count, err := b.ExportSQLite("users", "users.db")
	if err != nil {
		t.Fatalf("failed to export: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 rows exported, got %d", count)
	}

	if err := engine.CreateTable("people", map[string]core.FieldSpec{
		"name":      {Type: core.StringType, Required: true},
		"email":     {Type: core.StringType, Required: true, Unique: true},
		"age":       {Type: core.IntegerType},
		"is_active": {Type: core.BooleanType},
	}); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	imported, err := b.ImportSQLite("people", "users.db", "users")
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if imported != 2 {
		t.Errorf("expected 2 rows imported, got %d", imported)
	}

	rows, _ := engine.FetchAll("people")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Data["name"] != "Alice" || rows[0].Data["age"] != int64(30) {
		t.Errorf("unexpected first row: %+v", rows[0].Data)
	}
	if rows[0].Data["is_active"] != true || rows[1].Data["is_active"] != false {
		t.Errorf("expected booleans to roundtrip, got %+v and %+v",
			rows[0].Data["is_active"], rows[1].Data["is_active"])
	}
}

func TestExportSQLiteSchema(t *testing.T) {
	b, engine, base := newTestBridge(t)

	engine.Insert("users", map[string]any{"name": "Alice", "email": "a@example.com", "age": 30})

	if _, err := b.ExportSQLite("users", "schema.db"); err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	conn, err := sql.Open("sqlite", filepath.Join(base, "schema.db"))
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer conn.Close()

	var id int64
	var age any
	row := conn.QueryRow(`SELECT id, "age" FROM "users" WHERE "name" = ?`, "Alice")
	if err := row.Scan(&id, &age); err != nil {
		t.Fatalf("failed to scan: %v", err)
	}
	if id != 1 {
		t.Errorf("expected surrogate id 1, got %d", id)
	}
	if age != int64(30) {
		t.Errorf("expected age 30, got %#v", age)
	}
}

func TestImportSQLiteDefaultsSourceTable(t *testing.T) {
	b, engine, _ := newTestBridge(t)

	engine.Insert("users", map[string]any{"name": "Alice", "email": "a@example.com"})
	if _, err := b.ExportSQLite("users", "self.db"); err != nil {
		t.Fatalf("failed to export: %v", err)
	}

	if _, err := engine.Remove("users", db.ByID(1)); err != nil {
		t.Fatalf("failed to clear table: %v", err)
	}

	// Importing back into the same table with srcTable omitted.
	imported, err := b.ImportSQLite("users", "self.db", "")
	if err != nil {
		t.Fatalf("failed to import: %v", err)
	}
	if imported != 1 {
		t.Errorf("expected 1 row, got %d", imported)
	}
}

func TestImportSQLiteMissingFile(t *testing.T) {
	b, _, _ := newTestBridge(t)

	if _, err := b.ImportSQLite("users", "nope.db", ""); !core.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestSQLiteIdentifierValidation(t *testing.T) {
	b, _, _ := newTestBridge(t)

	if _, err := b.ExportSQLite("users; --", "x.db"); !core.IsSecurity(err) {
		t.Errorf("expected security error, got %v", err)
	}
	if _, err := b.ImportSQLite("users", "x.db", `evil"table`); !core.IsSecurity(err) {
		t.Errorf("expected security error, got %v", err)
	}
}

func TestImportSQLiteAbortsOnInvalidRow(t *testing.T) {
	b, engine, base := newTestBridge(t)

	conn, err := sql.Open("sqlite", filepath.Join(base, "partial.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if _, err := conn.Exec(`CREATE TABLE "users" (id INTEGER PRIMARY KEY, "name" TEXT, "email" TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	if _, err := conn.Exec(`INSERT INTO "users" ("name", "email") VALUES ('Alice', 'a@example.com'), ('Bob', NULL)`); err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	conn.Close()

	// Bob has no email, which the destination schema requires.
	if _, err := b.ImportSQLite("users", "partial.db", ""); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	count, _ := engine.Count("users")
	if count != 0 {
		t.Errorf("expected no rows after aborted import, got %d", count)
	}
}
