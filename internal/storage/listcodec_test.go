package storage

import (
	"path/filepath"
	"testing"
)

func TestFormatList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected string
	}{
		{name: "empty", input: nil, expected: "[]"},
		{name: "single", input: []string{"12345"}, expected: "['12345']"},
		{name: "two", input: []string{"12345", "67890"}, expected: "['12345', '67890']"},
		{name: "apostrophe", input: []string{"it's"}, expected: `["it's"]`},
		{name: "both quotes", input: []string{`a'b"c`}, expected: `['a\'b"c']`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatList(tt.input); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "blank", input: "", expected: nil},
		{name: "empty list", input: "[]", expected: nil},
		{name: "n/a", input: "n/a", expected: nil},
		{name: "single quoted", input: "['12345', '67890']", expected: []string{"12345", "67890"}},
		{name: "double quoted", input: `["12345","67890"]`, expected: []string{"12345", "67890"}},
		{name: "bare items", input: "[12345, 67890]", expected: []string{"12345", "67890"}},
		{name: "scalar", input: "12345", expected: []string{"12345"}},
		{name: "escaped quote", input: `['a\'b"c']`, expected: []string{`a'b"c`}},
		{name: "comma inside quotes", input: "['a, b', 'c']", expected: []string{"a, b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseList(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestListCodecRoundTrip(t *testing.T) {
	inputs := [][]string{
		{"12345", "67890"},
		{"it's", `say "hi"`, `back\slash`},
		{"a, b"},
	}
	for _, input := range inputs {
		got := ParseList(FormatList(input))
		if len(got) != len(input) {
			t.Fatalf("Expected %v, got %v", input, got)
		}
		for i := range input {
			if got[i] != input[i] {
				t.Errorf("Expected %v, got %v", input, got)
			}
		}
	}
}

func TestRejectLogDeduplicates(t *testing.T) {
	log, err := OpenRejectLog(filepath.Join(t.TempDir(), "missing_titles.csv"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer log.Close()

	writes := []struct {
		title, reason string
		expected      bool
	}{
		{"See http://example.com/book", "url", true},
		{"See http://example.com/book", "url", false},
		{"See http://example.com/book", "lccn not found", true},
		{"p. 44", "page_number", true},
	}
	for _, w := range writes {
		written, err := log.Record(w.title, w.reason)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if written != w.expected {
			t.Errorf("Record(%q, %q): expected %v, got %v", w.title, w.reason, w.expected, written)
		}
	}

	entries, err := log.Entries()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 entries, got %d: %+v", len(entries), entries)
	}
}
