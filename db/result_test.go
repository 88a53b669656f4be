package db

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{500 * time.Nanosecond, "<1µs"},
		{250 * time.Microsecond, "250µs"},
		{2500 * time.Microsecond, "2.5ms"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
		{2 * time.Minute, "2m"},
		{125 * time.Second, "2m5s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.expected {
			t.Errorf("formatDuration(%v) = %q, expected %q", tt.d, got, tt.expected)
		}
	}
}

func TestRender(t *testing.T) {
	value := "hello"
	tests := []struct {
		result   Result
		expected string
	}{
		{SetResult{Key: "a", Created: true}, "OK, 1 key created"},
		{SetResult{Key: "a"}, "OK, 1 key updated"},
		{DeleteResult{Key: "a"}, "OK"},
		{GetResult{Key: "a", Value: &value}, `"hello"`},
		{GetResult{Key: "a"}, "(nil)"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		tt.result.Render(&buf)
		if !strings.HasPrefix(buf.String(), tt.expected) {
			t.Errorf("Expected output starting with %q, got %q", tt.expected, buf.String())
		}
	}
}

func TestEnvelope(t *testing.T) {
	value := "v"
	tests := []struct {
		name     string
		result   Result
		expected string
	}{
		{"set", SetResult{ExecutionTime: 2 * time.Millisecond}, `{"time_ms":2,"type":"set"}`},
		{"delete", DeleteResult{}, `{"time_ms":0,"type":"delete"}`},
		{"get hit", GetResult{Value: &value}, `{"time_ms":0,"type":"get","result":{"value":"v"}}`},
		{"get miss", GetResult{}, `{"time_ms":0,"type":"get","result":{"value":null}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Envelope(tt.result))
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestSimpleTable(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf)
	table.Header("key", "value")
	table.Row("ключ", "x")

	table.Render()

	expected := "+------+-------+\n" +
		"| key  | value |\n" +
		"+------+-------+\n" +
		"| ключ | x     |\n" +
		"+------+-------+\n"
	if buf.String() != expected {
		t.Errorf("Expected:\n%s\ngot:\n%s", expected, buf.String())
	}
}
