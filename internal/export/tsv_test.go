// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package export

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteTSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if lines[0] != strings.Join(Header, "\t") {
		t.Errorf("Unexpected header %q", lines[0])
	}

	first := strings.Split(lines[1], "\t")
	if first[1] != "1" || first[6] != "Hello World" || first[11] != "Hello" || first[12] != "0.5" {
		t.Errorf("Unexpected first row %q", first)
	}

	// Empty word text keeps its box, unlike a line without word boxes
	second := strings.Split(lines[2], "\t")
	if second[7] != "55" || second[11] != "" || second[12] != "" {
		t.Errorf("Unexpected second row %q", second)
	}

	third := strings.Split(lines[3], "\t")
	if third[1] != "2" || third[6] != "No words" {
		t.Errorf("Unexpected third row %q", third)
	}
	for _, cell := range third[7:] {
		if cell != "" {
			t.Errorf("Expected blank word-box cells on a line without words, got %q", third)
			break
		}
	}
}
