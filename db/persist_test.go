package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/ps"
)

func TestSaveLoadRoundtrip(t *testing.T) {
	e := seedUsers(t)
	e.Link("users", 1, "follows", "users", 2)
	e.PutKV("motd", "hello")

	path := filepath.Join(t.TempDir(), "state.strata")
	if err := e.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	fresh := NewEngine(store, DefaultConfig())
	if err := fresh.Load(path); err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	rows, err := fresh.FetchAll("users")
	if err != nil {
		t.Fatalf("failed to fetch: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ID != 1 || rows[0].Data["name"] != "Alice" || rows[0].Data["age"] != int64(30) {
		t.Errorf("unexpected first row: %+v", rows[0])
	}

	neighbors, _ := fresh.Walk("users", 1, "follows")
	if len(neighbors) != 1 || neighbors[0].ID != 2 {
		t.Errorf("expected edge to survive, got %v", neighbors)
	}

	value, err := fresh.GetKV("motd")
	if err != nil || value != "hello" {
		t.Errorf("expected key to survive, got %#v (%v)", value, err)
	}

	// NextID survives: inserts continue where the saved engine left off.
	id, err := fresh.Insert("users", map[string]any{"name": "Dan", "email": "d@example.com"})
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}
	if id != 4 {
		t.Errorf("expected id 4, got %d", id)
	}
}

func TestLoadReplacesLiveState(t *testing.T) {
	e := seedUsers(t)

	path := filepath.Join(t.TempDir(), "state.strata")
	if err := e.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	e.CreateTable("extra", map[string]core.FieldSpec{"x": {Type: core.IntegerType}})
	if err := e.Load(path); err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	tables, _ := e.Tables()
	if len(tables) != 1 || tables[0] != "users" {
		t.Errorf("expected only users after load, got %v", tables)
	}
}

func TestLoadMissingFile(t *testing.T) {
	e := newTestEngine(t)

	err := e.Load(filepath.Join(t.TempDir(), "missing.strata"))
	if !core.IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestLoadChecksumMismatch(t *testing.T) {
	e := seedUsers(t)

	path := filepath.Join(t.TempDir(), "state.strata")
	if err := e.Save(path); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read save file: %v", err)
	}
	data[len(data)-1] ^= 0xff
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to corrupt save file: %v", err)
	}

	if err := e.Load(path); !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}

	// Live state untouched by the failed load.
	count, _ := e.Count("users")
	if count != 3 {
		t.Errorf("expected live state intact, got %d rows", count)
	}
}

func TestLoadShortFile(t *testing.T) {
	e := newTestEngine(t)

	path := filepath.Join(t.TempDir(), "short.strata")
	if err := os.WriteFile(path, []byte("tiny"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if err := e.Load(path); !core.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}
