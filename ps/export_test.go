package ps

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestExportImport(t *testing.T) {
	source := setupTest(t)
	source.Write("a", "1")
	source.Write("b", "2")

	var buf bytes.Buffer
	n, err := source.Export(&buf)
	if err != nil {
		t.Fatalf("Failed to export: %v", err)
	}
	size, _ := source.Size()
	if n != size {
		t.Errorf("Expected %d exported bytes, got %d", size, n)
	}

	target := setupTest(t)
	target.Write("old", "value")

	if err := target.Import(&buf); err != nil {
		t.Fatalf("Failed to import: %v", err)
	}

	keys, err := target.Keys()
	if err != nil {
		t.Fatalf("Failed to list keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", keys)
	}
}

func TestImportRejectsInvalidImage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{"empty", nil, ErrCorrupt},
		{"bad magic", []byte("not a kiv file"), ErrCorrupt},
		{"bad version", []byte{0, 'h', 'i', 'k', 'i', 'v', 0, 3}, ErrUnsupportedVersion},
		{"truncated record", append(fileHeader(), 0, 0, 4, 'a'), ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			persistence := setupTest(t)
			persistence.Write("keep", "me")

			err := persistence.Import(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.err) {
				t.Fatalf("Expected %v, got %v", tt.err, err)
			}

			value, _, _ := persistence.Get("keep")
			if value != "me" {
				t.Errorf("Expected existing data untouched, got %q", value)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(fileHeader()); err != nil {
		t.Errorf("Expected empty image to be valid, got %v", err)
	}

	image := append(fileHeader(), 0, 0, 1, 'k', 0, 0, 0, 1, 'v')
	if err := Validate(image); err != nil {
		t.Errorf("Expected image to be valid, got %v", err)
	}
}
