package op

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nickyhof/KivDB/ps"
)

func setupTestStore(t *testing.T) *StoreOp {
	t.Helper()

	persistence, err := ps.NewMemoryPersistence()
	if err != nil {
		t.Fatalf("Failed to create persistence: %v", err)
	}
	t.Cleanup(func() { persistence.Close() })

	return NewStoreOp(persistence)
}

func TestPut(t *testing.T) {
	store := setupTestStore(t)

	created, err := store.Put("key", "v1")
	if err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if !created {
		t.Error("Expected first put to create the entry")
	}

	created, err = store.Put("key", "v2")
	if err != nil {
		t.Fatalf("Failed to put: %v", err)
	}
	if created {
		t.Error("Expected second put to update the entry")
	}

	value, exists := store.GetString("key")
	if !exists || value != "v2" {
		t.Errorf("Expected 'v2', got %q (exists=%v)", value, exists)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 entry after overwrite, got %d", count)
	}
}

func TestPutPreservesOthers(t *testing.T) {
	store := setupTestStore(t)

	store.Put("a", "1")
	store.Put("b", "2")
	store.Put("c", "3")
	store.Put("a", "updated")

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b", "c"}) {
		t.Errorf("Expected [a b c], got %v", keys)
	}

	for key, expected := range map[string]string{"a": "updated", "b": "2", "c": "3"} {
		if value, _ := store.GetString(key); value != expected {
			t.Errorf("Expected %s=%q, got %q", key, expected, value)
		}
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)

	store.Put("a", "1")
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := store.Delete("a"); err != nil {
		t.Fatalf("Failed to delete twice: %v", err)
	}

	if _, exists := store.GetString("a"); exists {
		t.Error("Expected key to be deleted")
	}
}

func TestScan(t *testing.T) {
	store := setupTestStore(t)

	store.Put("user_1", "alice")
	store.Put("order_1", "book")
	store.Put("user_2", "bob")

	var all []string
	for key := range store.Scan() {
		all = append(all, key)
	}
	if !reflect.DeepEqual(all, []string{"user_1", "order_1", "user_2"}) {
		t.Errorf("Expected all keys in file order, got %v", all)
	}

	users := map[string]string{}
	for key, value := range store.ScanWithFilter(func(k, v string) bool {
		return strings.HasPrefix(k, "user_")
	}) {
		users[key] = value
	}
	expected := map[string]string{"user_1": "alice", "user_2": "bob"}
	if !reflect.DeepEqual(users, expected) {
		t.Errorf("Expected %v, got %v", expected, users)
	}
}

func TestScanEarlyBreak(t *testing.T) {
	store := setupTestStore(t)

	for _, k := range []string{"a", "b", "c"} {
		store.Put(k, k)
	}

	seen := 0
	for range store.Scan() {
		seen++
		break
	}
	if seen != 1 {
		t.Errorf("Expected iteration to stop after 1, got %d", seen)
	}
}
