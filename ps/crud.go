package ps

import (
	"fmt"
	"io"

	"github.com/nickyhof/KivDB/core"
)

// Write appends a new entry at the end of the file. It does not look for an
// existing entry with the same key.
func (persistence *Persistence) Write(key string, value string) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	data, err := encodeEntry(core.NewDataEntry(key, value))
	if err != nil {
		return err
	}

	if _, err := persistence.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of data file: %w", err)
	}
	if _, err := persistence.file.Write(data); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}

	return nil
}

// Get returns the value of the first entry with the given key.
func (persistence *Persistence) Get(key string) (value string, found bool, err error) {
	rec, found, err := persistence.locate(key, true)
	if err != nil || !found {
		return "", false, err
	}
	return rec.value, true, nil
}

// Update replaces the entry for key with a fresh entry holding value. The
// old entry is removed and the new one is written at its offset, followed by
// the records that came after it. Missing keys are ignored.
func (persistence *Persistence) Update(key string, value string) error {
	rec, found, err := persistence.locate(key, false)
	if err != nil || !found {
		return err
	}

	data, err := encodeEntry(core.NewDataEntry(key, value))
	if err != nil {
		return err
	}

	return persistence.shift(rec, data)
}

// Delete removes the entry for key. Missing keys are ignored.
func (persistence *Persistence) Delete(key string) error {
	rec, found, err := persistence.locate(key, false)
	if err != nil || !found {
		return err
	}

	return persistence.shift(rec, nil)
}

// Entries returns every entry in file order.
func (persistence *Persistence) Entries() ([]core.DataEntry, error) {
	var entries []core.DataEntry

	err := persistence.scan(func(string) bool { return true }, func(rec record) bool {
		entries = append(entries, core.NewDataEntry(rec.key, rec.value))
		return true
	})

	return entries, err
}

// Keys returns every key in file order.
func (persistence *Persistence) Keys() ([]string, error) {
	var keys []string

	err := persistence.scan(nil, func(rec record) bool {
		keys = append(keys, rec.key)
		return true
	})

	return keys, err
}

// locate finds the first record with key.
func (persistence *Persistence) locate(key string, withValue bool) (rec record, found bool, err error) {
	var wantValue func(string) bool
	if withValue {
		wantValue = func(k string) bool { return k == key }
	}

	err = persistence.scan(wantValue, func(r record) bool {
		if r.key == key {
			rec = r
			found = true
			return false
		}
		return true
	})

	return rec, found, err
}

// scan visits records from the first one after the header until visit
// returns false or the file ends.
func (persistence *Persistence) scan(wantValue func(string) bool, visit func(record) bool) error {
	if err := persistence.ensureInitialized(); err != nil {
		return err
	}

	end, err := persistence.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to stat data file: %w", err)
	}
	if _, err := persistence.file.Seek(headerSize, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek past header: %w", err)
	}

	reader := newEntryReader(persistence.file, headerSize, end)
	for {
		rec, err := reader.next(wantValue)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !visit(rec) {
			return nil
		}
	}
}

// shift removes rec from the file. Everything after it is read into memory,
// the file is truncated at the record's offset, then replacement (if any)
// and the saved bytes are written back.
func (persistence *Persistence) shift(rec record, replacement []byte) error {
	if _, err := persistence.file.Seek(rec.offset+rec.length, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek past entry: %w", err)
	}
	trailing, err := io.ReadAll(persistence.file)
	if err != nil {
		return fmt.Errorf("failed to read trailing entries: %w", err)
	}

	if err := persistence.file.Truncate(rec.offset); err != nil {
		return fmt.Errorf("failed to truncate data file: %w", err)
	}
	if _, err := persistence.file.Seek(rec.offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to entry: %w", err)
	}

	if len(replacement) > 0 {
		if _, err := persistence.file.Write(replacement); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	if len(trailing) > 0 {
		if _, err := persistence.file.Write(trailing); err != nil {
			return fmt.Errorf("failed to write trailing entries: %w", err)
		}
	}

	return nil
}
