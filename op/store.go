package op

import (
	"iter"

	"github.com/nickyhof/KivDB/core"
	"github.com/nickyhof/KivDB/ps"
)

// StoreOp wraps key-level operations on a single data file. It does not
// lock; callers sharing the persistence bracket each call with
// Persistence.Lock and Unlock.
type StoreOp struct {
	Persistence *ps.Persistence
}

func NewStoreOp(persistence *ps.Persistence) *StoreOp {
	return &StoreOp{Persistence: persistence}
}

func (op *StoreOp) Get(key string) (value string, exists bool, err error) {
	return op.Persistence.Get(key)
}

// GetString returns the value for key. Read errors are reported as absent.
func (op *StoreOp) GetString(key string) (value string, exists bool) {
	value, exists, err := op.Get(key)
	if err != nil {
		return "", false
	}
	return value, exists
}

// Put stores value under key: an existing entry is updated in place,
// otherwise a new entry is appended. created reports which one happened.
func (op *StoreOp) Put(key string, value string) (created bool, err error) {
	_, exists, err := op.Persistence.Get(key)
	if err != nil {
		return false, err
	}

	if exists {
		return false, op.Persistence.Update(key, value)
	}
	return true, op.Persistence.Write(key, value)
}

func (op *StoreOp) Delete(key string) error {
	return op.Persistence.Delete(key)
}

func (op *StoreOp) Keys() ([]string, error) {
	return op.Persistence.Keys()
}

func (op *StoreOp) Count() (int, error) {
	keys, err := op.Keys()
	return len(keys), err
}

func (op *StoreOp) Entries() ([]core.DataEntry, error) {
	return op.Persistence.Entries()
}

// Scan yields every entry in file order. It stops silently at the first
// unreadable record; use Entries to see the error.
func (op *StoreOp) Scan() iter.Seq2[string, string] {
	return op.ScanWithFilter(nil)
}

func (op *StoreOp) ScanWithFilter(filterExpr func(key string, value string) bool) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		entries, err := op.Persistence.Entries()
		if err != nil {
			return
		}
		for _, entry := range entries {
			if filterExpr != nil && !filterExpr(entry.Key, entry.Value) {
				continue
			}
			if !yield(entry.Key, entry.Value) {
				return
			}
		}
	}
}
