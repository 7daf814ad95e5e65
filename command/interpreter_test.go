package command

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stratadb/strata/core"
	"github.com/stratadb/strata/db"
	"github.com/stratadb/strata/ps"
)

func newTestInterpreter(t *testing.T) (*Interpreter, *db.Engine) {
	t.Helper()
	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	engine := db.NewEngine(store, db.DefaultConfig())
	if err := engine.CreateTable("users", map[string]core.FieldSpec{
		"name":  {Type: core.StringType, Required: true},
		"email": {Type: core.StringType, Required: true, Unique: true},
	}); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return New(engine), engine
}

func TestCount(t *testing.T) {
	it, engine := newTestInterpreter(t)

	engine.Insert("users", map[string]any{"name": "Alice", "email": "a@example.com"})
	engine.Insert("users", map[string]any{"name": "Bob", "email": "b@example.com"})

	result, err := it.Execute("COUNT users")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	if result != 2 {
		t.Errorf("expected 2, got %#v", result)
	}
}

func TestCountMissingArgument(t *testing.T) {
	it, _ := newTestInterpreter(t)

	_, err := it.Execute("COUNT")
	if !core.IsSyntax(err) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if !strings.Contains(err.Error(), "COUNT requires a table name") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestVerbsAreCaseInsensitive(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("count users")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	if result != 0 {
		t.Errorf("expected 0, got %#v", result)
	}
}

func TestDescribe(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("DESCRIBE users")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	fields, ok := result.([]string)
	if !ok || len(fields) != 2 || fields[0] != "email" || fields[1] != "name" {
		t.Errorf("expected sorted fields, got %#v", result)
	}
}

func TestTables(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("TABLES")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	tables, ok := result.([]string)
	if !ok || len(tables) != 1 || tables[0] != "users" {
		t.Errorf("expected [users], got %#v", result)
	}
}

func TestHistoryKeepsAcceptedCommands(t *testing.T) {
	it, _ := newTestInterpreter(t)

	it.Execute("TABLES")
	it.Execute("COUNT users")
	it.Execute("BOGUS") // unknown, but accepted past the limit checks

	result, err := it.Execute("HISTORY")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	history, ok := result.([]string)
	if !ok {
		t.Fatalf("expected []string, got %#v", result)
	}
	want := []string{"TABLES", "COUNT users", "BOGUS", "HISTORY"}
	if len(history) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(history))
	}
	for i := range want {
		if history[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], history[i])
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	it, _ := newTestInterpreter(t)

	_, err := it.Execute("EXPLODE now")
	if !core.IsSyntax(err) {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestEmptyInput(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("   ")
	if err != nil || result != nil {
		t.Errorf("expected silent no-op, got %#v (%v)", result, err)
	}
}

func TestCommandLengthLimit(t *testing.T) {
	it, _ := newTestInterpreter(t)

	long := "COUNT " + strings.Repeat("x", db.DefaultMaxCommandLen)
	_, err := it.Execute(long)
	if !core.IsLimitExceeded(err) {
		t.Fatalf("expected limit error, got %v", err)
	}

	// A rejected command is not recorded.
	result, _ := it.Execute("HISTORY")
	history := result.([]string)
	if len(history) != 1 || history[0] != "HISTORY" {
		t.Errorf("expected only HISTORY in history, got %v", history)
	}
}

func TestAlias(t *testing.T) {
	it, engine := newTestInterpreter(t)

	engine.Insert("users", map[string]any{"name": "Alice", "email": "a@example.com"})

	if _, err := it.Execute("ALIAS cu COUNT users"); err != nil {
		t.Fatalf("failed to create alias: %v", err)
	}

	result, err := it.Execute("cu")
	if err != nil {
		t.Fatalf("failed to run alias: %v", err)
	}
	if result != 1 {
		t.Errorf("expected 1, got %#v", result)
	}
}

func TestAliasFormat(t *testing.T) {
	it, _ := newTestInterpreter(t)

	_, err := it.Execute("ALIAS cu")
	if !core.IsSyntax(err) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	if !strings.Contains(err.Error(), "ALIAS format") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestAliasInvalidName(t *testing.T) {
	it, _ := newTestInterpreter(t)

	if _, err := it.Execute("ALIAS bad/name COUNT users"); !core.IsSecurity(err) {
		t.Errorf("expected security error, got %v", err)
	}
}

func TestAliasCycleFails(t *testing.T) {
	it, _ := newTestInterpreter(t)

	it.Execute("ALIAS a b")
	it.Execute("ALIAS b a")

	if _, err := it.Execute("a"); !core.IsSyntax(err) {
		t.Errorf("expected syntax error for alias cycle, got %v", err)
	}
}

func TestBatchSessionCap(t *testing.T) {
	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	cfg := db.DefaultConfig()
	cfg.Limits.MaxBatchCommands = 3
	it := New(db.NewEngine(store, cfg))

	if _, err := it.Execute("BATCH"); err != nil {
		t.Fatalf("failed to open batch: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := it.Execute("TABLES"); err != nil {
			t.Fatalf("command %d failed: %v", i, err)
		}
	}

	_, err = it.Execute("TABLES")
	if !core.IsLimitExceeded(err) {
		t.Fatalf("expected limit error on command 4, got %v", err)
	}

	// COMMIT still closes the session and reports the count.
	result, err := it.Execute("COMMIT")
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	if result != 3 {
		t.Errorf("expected 3 commands in session, got %#v", result)
	}

	// Outside a session the cap no longer applies.
	if _, err := it.Execute("TABLES"); err != nil {
		t.Errorf("unexpected error after commit: %v", err)
	}
}

func TestBatchResetsCounter(t *testing.T) {
	store, _ := ps.NewMemoryStore()
	cfg := db.DefaultConfig()
	cfg.Limits.MaxBatchCommands = 2
	it := New(db.NewEngine(store, cfg))

	it.Execute("BATCH")
	it.Execute("TABLES")
	it.Execute("TABLES")

	// A second BATCH starts the count over.
	if _, err := it.Execute("BATCH"); err != nil {
		t.Fatalf("failed to reopen batch: %v", err)
	}
	if _, err := it.Execute("TABLES"); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}

func TestCommitWithoutBatch(t *testing.T) {
	it, _ := newTestInterpreter(t)

	if _, err := it.Execute("COMMIT"); !core.IsSyntax(err) {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func TestHelpListsVerbs(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("HELP")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	verbs, ok := result.([]string)
	if !ok || len(verbs) != 8 {
		t.Errorf("expected 8 verbs, got %#v", result)
	}
}

type recordingLoader struct {
	payloads [][]byte
	err      error
}

func (l *recordingLoader) Load(payload []byte) error {
	l.payloads = append(l.payloads, payload)
	return l.err
}

func TestIngest(t *testing.T) {
	it, _ := newTestInterpreter(t)

	loader := &recordingLoader{}
	it.SetBulkLoader(loader)

	if err := it.Ingest([]byte("payload")); err != nil {
		t.Fatalf("failed to ingest: %v", err)
	}
	if len(loader.payloads) != 1 || string(loader.payloads[0]) != "payload" {
		t.Errorf("loader not invoked as expected: %v", loader.payloads)
	}
}

func TestIngestSizeCap(t *testing.T) {
	it, _ := newTestInterpreter(t)

	loader := &recordingLoader{}
	it.SetBulkLoader(loader)

	big := make([]byte, db.DefaultMaxIngestBytes+1)
	if err := it.Ingest(big); !core.IsLimitExceeded(err) {
		t.Fatalf("expected limit error, got %v", err)
	}
	if len(loader.payloads) != 0 {
		t.Error("loader must not run for oversized payloads")
	}
}

func TestIngestWithoutLoader(t *testing.T) {
	it, _ := newTestInterpreter(t)

	if err := it.Ingest([]byte("x")); err == nil {
		t.Error("expected error without a loader")
	}
}

func TestResultsAreValuesNotText(t *testing.T) {
	it, _ := newTestInterpreter(t)

	result, err := it.Execute("COUNT users")
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	if _, ok := result.(int); !ok {
		t.Errorf("expected an int, got %T (%v)", result, fmt.Sprint(result))
	}
}
