// Package op provides key-level operations on a KivDB store.
//
// The op package sits between the statement engine (db/) and the
// persistence layer (ps/). It adds the set policy (update when the key
// exists, append otherwise) and convenient read helpers:
//
//	store := op.NewStoreOp(persistence)
//
//	created, _ := store.Put("key", "value")   // Insert or update
//	value, exists := store.GetString("key")
//	store.Delete("key")
//	count, _ := store.Count()
//
//	for key, value := range store.ScanWithFilter(func(k, v string) bool {
//	    return strings.HasPrefix(k, "user_")
//	}) {
//	    // process filtered entries
//	}
//
// # Architecture
//
//	KivQL compiler (kql/)
//	     ↓
//	Engine (db/)
//	     ↓
//	Operations (op/)     ← This package
//	     ↓
//	Persistence (ps/)
//	     ↓
//	Data file (go-billy), history (go-git)
package op
