package db

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/go-git/go-git/v6"
	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/kql"
	"github.com/nickyhof/KivDB/ps"
)

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	t.Cleanup(func() { persistence.Close() })

	identity := core.Identity{Name: "test", Email: "test@test.com"}
	return NewEngine(persistence, identity)
}

func mustExecute(t *testing.T, engine *Engine, statement string) Result {
	t.Helper()

	result, err := engine.Execute(statement)
	if err != nil {
		t.Fatalf("Failed to execute %q: %v", statement, err)
	}
	return result
}

func getValue(t *testing.T, engine *Engine, key string) *string {
	t.Helper()

	result := mustExecute(t, engine, `GET "`+key+`"`)
	get, ok := result.(GetResult)
	if !ok {
		t.Fatalf("Expected GetResult, got %T", result)
	}
	return get.Value
}

func TestEngineSetGetDeleteScenario(t *testing.T) {
	engine := setupTestEngine(t)

	result := mustExecute(t, engine, `SET "greeting" TO "hello"`)
	if result.Type() != kql.SetOperationType {
		t.Errorf("Expected set result, got %v", result.Type())
	}
	if set := result.(SetResult); !set.Created {
		t.Error("Expected key to be created")
	}

	value := getValue(t, engine, "greeting")
	if value == nil || *value != "hello" {
		t.Fatalf("Expected 'hello', got %v", value)
	}

	result = mustExecute(t, engine, `DELETE "greeting"`)
	if result.Type() != kql.DeleteOperationType {
		t.Errorf("Expected delete result, got %v", result.Type())
	}

	if value := getValue(t, engine, "greeting"); value != nil {
		t.Errorf("Expected nil after delete, got %q", *value)
	}
}

func TestEngineSetOverwrites(t *testing.T) {
	engine := setupTestEngine(t)

	mustExecute(t, engine, `SET "a" TO "1"`)
	mustExecute(t, engine, `SET "b" TO "2"`)
	result := mustExecute(t, engine, `SET 'a' TO 'updated'`)
	if result.(SetResult).Created {
		t.Error("Expected existing key to be updated")
	}

	if value := getValue(t, engine, "a"); value == nil || *value != "updated" {
		t.Errorf("Expected 'updated', got %v", value)
	}
	if value := getValue(t, engine, "b"); value == nil || *value != "2" {
		t.Errorf("Expected 'b' untouched, got %v", value)
	}

	keys, err := engine.Keys()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", keys)
	}
}

func TestEngineDeleteMissingKey(t *testing.T) {
	engine := setupTestEngine(t)

	result := mustExecute(t, engine, `DELETE "nothing"`)
	if _, ok := result.(DeleteResult); !ok {
		t.Errorf("Expected DeleteResult, got %T", result)
	}
}

func TestEngineEmptyValue(t *testing.T) {
	engine := setupTestEngine(t)

	mustExecute(t, engine, `SET "empty" TO ""`)
	value := getValue(t, engine, "empty")
	if value == nil || *value != "" {
		t.Errorf("Expected empty string value, got %v", value)
	}
}

func TestEngineCompileErrors(t *testing.T) {
	engine := setupTestEngine(t)

	tests := []struct {
		statement string
		expected  error
	}{
		{"", kql.EmptyStatement},
		{`SET "a"`, kql.SetNoTo},
		{"GET", kql.GetNoKey},
		{`"a"`, kql.OperationFirst},
		{"SET x TO y", kql.TokenizerError{Kind: kql.UnknownKeyword, Text: "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.statement, func(t *testing.T) {
			_, err := engine.Execute(tt.statement)
			if !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}

			var storageErr *StorageError
			if errors.As(err, &storageErr) {
				t.Error("Expected compile error not to be a storage error")
			}
		})
	}

	count, err := engine.Count()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected compile errors to leave the store untouched, got %d keys", count)
	}
}

func TestEngineStorageError(t *testing.T) {
	engine := setupTestEngine(t)

	if err := engine.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	_, err := engine.Execute(`GET "a"`)
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Expected *StorageError, got %v", err)
	}
	if storageErr.Operation != kql.GetOperationType {
		t.Errorf("Expected get operation, got %v", storageErr.Operation)
	}
	if !errors.Is(err, ps.ErrClosed) {
		t.Errorf("Expected wrapped ErrClosed, got %v", err)
	}
}

func TestEngineConcurrentExecute(t *testing.T) {
	engine := setupTestEngine(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := engine.Execute(`SET "counter" TO "x"`); err != nil {
					t.Errorf("Failed to execute: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	count, err := engine.Count()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected a single entry after concurrent sets, got %d", count)
	}
}

func TestEngineCheckpointAndRecover(t *testing.T) {
	engine := setupTestEngine(t)

	mustExecute(t, engine, `SET "version" TO "1"`)
	txn, err := engine.Checkpoint("first")
	if err != nil {
		t.Fatalf("Failed to checkpoint: %v", err)
	}
	if txn.Author != "test <test@test.com>" {
		t.Errorf("Expected engine identity as author, got %q", txn.Author)
	}
	if err := engine.Snapshot("v1"); err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}

	mustExecute(t, engine, `SET "version" TO "2"`)
	if err := engine.Recover("v1"); err != nil {
		t.Fatalf("Failed to recover: %v", err)
	}

	if value := getValue(t, engine, "version"); value == nil || *value != "1" {
		t.Errorf("Expected recovered version '1', got %v", value)
	}

	history, err := engine.History()
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("Expected 1 checkpoint, got %d", len(history))
	}
}

func TestEnginePushAndFetch(t *testing.T) {
	bareDir := t.TempDir()
	if _, err := git.PlainInit(bareDir, true); err != nil {
		t.Fatalf("Failed to init bare repo: %v", err)
	}

	source := setupTestEngine(t)
	mustExecute(t, source, `SET "origin" TO "source"`)
	if _, err := source.Checkpoint("seed"); err != nil {
		t.Fatalf("Failed to checkpoint: %v", err)
	}
	if err := source.Snapshot("seed"); err != nil {
		t.Fatalf("Failed to snapshot: %v", err)
	}
	if err := source.AddRemote("origin", bareDir); err != nil {
		t.Fatalf("Failed to add remote: %v", err)
	}
	if err := source.Push("origin", nil); err != nil {
		t.Fatalf("Failed to push: %v", err)
	}

	replica := setupTestEngine(t)
	if err := replica.AddRemote("origin", bareDir); err != nil {
		t.Fatalf("Failed to add remote: %v", err)
	}
	if err := replica.Fetch("origin", nil); err != nil {
		t.Fatalf("Failed to fetch: %v", err)
	}
	if value := getValue(t, replica, "origin"); value != nil {
		t.Errorf("Expected fetch to leave the store untouched, got %q", *value)
	}

	if err := replica.Recover("seed"); err != nil {
		t.Fatalf("Failed to recover fetched snapshot: %v", err)
	}
	if value := getValue(t, replica, "origin"); value == nil || *value != "source" {
		t.Errorf("Expected 'source', got %v", value)
	}
}

func TestEngineStats(t *testing.T) {
	engine := setupTestEngine(t)

	mustExecute(t, engine, `SET "a" TO "1"`)
	mustExecute(t, engine, `SET "b" TO "22"`)

	stats, err := engine.Stats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.Keys != 2 {
		t.Errorf("Expected 2 keys, got %d", stats.Keys)
	}
	// header + (1+2+1+4+1) + (1+2+1+4+2)
	if stats.SizeBytes != 8+9+10 {
		t.Errorf("Expected 27 bytes, got %d", stats.SizeBytes)
	}
	if !stats.HistoryEnabled {
		t.Error("Expected history to be enabled for memory persistence")
	}
}
