// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ocr

import (
	"fmt"
	"testing"
)

func conf(v float64) *float64 { return &v }

func box(x0, y0, x1, y1 float64) BoundingBox {
	return BoundingBox{Min: Point{X: x0, Y: y0}, Max: Point{X: x1, Y: y1}}
}

func TestNormalizeLines_LineWithoutWordBoxes(t *testing.T) {
	lines := []RecognizedLine{{Position: box(0, 0, 10, 10), Content: "Hello"}}

	rows := NormalizeLines(lines, 1)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row.WordBoxPosition != nil || row.WordBoxContent != nil || row.WordBoxConfidence != nil {
		t.Errorf("Expected missing word-box fields, got %+v", row)
	}
	if row.HasWordBox() {
		t.Error("HasWordBox should be false for a line-only row")
	}
	if row.LineContent != "Hello" {
		t.Errorf("Expected line content Hello, got %q", row.LineContent)
	}
	if row.LinePosition != box(0, 0, 10, 10) {
		t.Errorf("Unexpected line position %+v", row.LinePosition)
	}
	if row.Page != 1 {
		t.Errorf("Expected page 1, got %d", row.Page)
	}
	if row.LineID == "" {
		t.Error("Expected a generated line id")
	}
}

func TestNormalizeLines_WordBoxes(t *testing.T) {
	lines := []RecognizedLine{{
		Position: box(0, 0, 100, 20),
		Content:  "Hello World",
		WordBoxes: []RecognizedWordBox{
			{Position: box(0, 0, 45, 20), Content: "Hello", Confidence: conf(0.9)},
			{Position: box(55, 0, 100, 20), Content: "World", Confidence: conf(0.8)},
		},
	}}

	rows := NormalizeLines(lines, 1)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].LineID != rows[1].LineID {
		t.Errorf("Rows from one line should share an id: %s vs %s", rows[0].LineID, rows[1].LineID)
	}
	want := []struct {
		content string
		conf    float64
	}{{"Hello", 0.9}, {"World", 0.8}}
	for i, w := range want {
		if rows[i].LineContent != "Hello World" {
			t.Errorf("row %d: expected shared line content, got %q", i, rows[i].LineContent)
		}
		if rows[i].WordBoxContent == nil || *rows[i].WordBoxContent != w.content {
			t.Errorf("row %d: expected word %q, got %v", i, w.content, rows[i].WordBoxContent)
		}
		if rows[i].WordBoxConfidence == nil || *rows[i].WordBoxConfidence != w.conf {
			t.Errorf("row %d: expected confidence %v, got %v", i, w.conf, rows[i].WordBoxConfidence)
		}
	}
	if *rows[1].WordBoxPosition != box(55, 0, 100, 20) {
		t.Errorf("Unexpected word position %+v", *rows[1].WordBoxPosition)
	}
}

func TestNormalizeLines_EmptyInput(t *testing.T) {
	rows := NormalizeLines(nil, 1)
	if rows == nil {
		t.Fatal("Expected an empty, non-nil slice")
	}
	if len(rows) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(rows))
	}
}

func TestNormalizeLines_EmptyWordTextIsNotMissing(t *testing.T) {
	lines := []RecognizedLine{{
		Content:   "",
		WordBoxes: []RecognizedWordBox{{Content: ""}},
	}}

	rows := NormalizeLines(lines, 3)
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0].WordBoxContent == nil {
		t.Fatal("A recognized word with empty text must not be reported as missing")
	}
	if *rows[0].WordBoxContent != "" {
		t.Errorf("Expected empty word text, got %q", *rows[0].WordBoxContent)
	}
	if rows[0].WordBoxConfidence != nil {
		t.Error("Missing confidence should pass through as missing")
	}
}

func TestNormalizeLines_RowCountAndIDs(t *testing.T) {
	var lines []RecognizedLine
	for i := 0; i < 6; i++ {
		line := RecognizedLine{Content: fmt.Sprintf("line %d", i)}
		for j := 0; j < i%3; j++ {
			line.WordBoxes = append(line.WordBoxes, RecognizedWordBox{Content: fmt.Sprintf("w%d.%d", i, j)})
		}
		lines = append(lines, line)
	}

	rows := NormalizeLines(lines, 2)
	// max(1,0)+1+2 twice
	if len(rows) != 8 || CountRows(lines) != 8 {
		t.Fatalf("Expected 8 rows, got %d (CountRows=%d)", len(rows), CountRows(lines))
	}

	idsByLine := make(map[string]string)
	for _, row := range rows {
		if row.Page != 2 {
			t.Errorf("Expected page 2, got %d", row.Page)
		}
		if prev, ok := idsByLine[row.LineContent]; ok && prev != row.LineID {
			t.Errorf("Line %q has more than one id", row.LineContent)
		}
		idsByLine[row.LineContent] = row.LineID
	}

	seen := make(map[string]bool)
	for _, id := range idsByLine {
		if seen[id] {
			t.Errorf("Id %s shared by distinct lines", id)
		}
		seen[id] = true
	}
}

func TestNormalizeLines_PreservesOrder(t *testing.T) {
	lines := []RecognizedLine{
		{Content: "b", WordBoxes: []RecognizedWordBox{{Content: "b2"}, {Content: "b1"}}},
		{Content: "a"},
		{Content: "c", WordBoxes: []RecognizedWordBox{{Content: "c1"}}},
	}

	rows := NormalizeLines(lines, 1)
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		label := row.LineContent
		if row.WordBoxContent != nil {
			label += "/" + *row.WordBoxContent
		}
		got = append(got, label)
	}

	want := []string{"b/b2", "b/b1", "a", "c/c1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestNormalizeLines_Idempotent(t *testing.T) {
	lines := []RecognizedLine{
		{Position: box(1, 2, 3, 4), Content: "x", WordBoxes: []RecognizedWordBox{{Position: box(1, 2, 2, 4), Content: "x", Confidence: conf(0.5)}}},
		{Position: box(5, 6, 7, 8), Content: "y"},
	}

	first := NormalizeLines(lines, 4)
	second := NormalizeLines(lines, 4)
	if len(first) != len(second) {
		t.Fatalf("Row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.LineID == b.LineID {
			t.Errorf("row %d: expected fresh ids per call", i)
		}
		a.LineID, b.LineID = "", ""
		if fmt.Sprintf("%v", describe(a)) != fmt.Sprintf("%v", describe(b)) {
			t.Errorf("row %d differs beyond ids: %v vs %v", i, describe(a), describe(b))
		}
	}
}

func TestNormalizeLines_CopiesWordBoxes(t *testing.T) {
	lines := []RecognizedLine{{WordBoxes: []RecognizedWordBox{{Content: "a", Confidence: conf(0.4)}}}}

	rows := NormalizeLines(lines, 1)
	lines[0].WordBoxes[0].Content = "changed"
	*lines[0].WordBoxes[0].Confidence = 0.1

	if *rows[0].WordBoxContent != "a" || *rows[0].WordBoxConfidence != 0.4 {
		t.Errorf("Rows should not alias the input, got %q %v", *rows[0].WordBoxContent, *rows[0].WordBoxConfidence)
	}
}

func TestNormalizeDocument_TwoPages(t *testing.T) {
	pages := []PageLines{
		{Page: 1, Lines: []RecognizedLine{{Content: "first", WordBoxes: []RecognizedWordBox{{Content: "first"}}}}},
		{Page: 2, Lines: []RecognizedLine{{Content: "second", WordBoxes: []RecognizedWordBox{{Content: "second"}}}}},
	}

	rows := NormalizeDocument(pages)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0].Page != 1 || rows[1].Page != 2 {
		t.Errorf("Expected pages 1,2 got %d,%d", rows[0].Page, rows[1].Page)
	}
	if rows[0].LineContent != "first" || rows[1].LineContent != "second" {
		t.Errorf("Unexpected order: %q, %q", rows[0].LineContent, rows[1].LineContent)
	}
}

func TestNormalizeDocument_RestampsPages(t *testing.T) {
	pages := []PageLines{
		{Page: 7, Lines: []RecognizedLine{{Content: "a"}}},
		{Page: 9, Lines: nil},
		{Page: 12, Lines: []RecognizedLine{{Content: "c"}, {Content: "d"}}},
	}

	rows := NormalizeDocument(pages)
	want := []int{1, 3, 3}
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(rows))
	}
	for i, p := range want {
		if rows[i].Page != p {
			t.Errorf("row %d: expected page %d, got %d", i, p, rows[i].Page)
		}
	}
}

func TestNormalizeDocument_DeterministicIDs(t *testing.T) {
	orig := newLineID
	defer func() { newLineID = orig }()

	n := 0
	newLineID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}

	rows := NormalizeDocument([]PageLines{
		{Lines: []RecognizedLine{{Content: "a", WordBoxes: []RecognizedWordBox{{}, {}}}}},
		{Lines: []RecognizedLine{{Content: "b"}}},
	})

	want := []string{"id-1", "id-1", "id-2"}
	for i, id := range want {
		if rows[i].LineID != id {
			t.Errorf("row %d: expected %s, got %s", i, id, rows[i].LineID)
		}
	}
}

func describe(r FlatRow) []interface{} {
	out := []interface{}{r.LineID, r.LinePosition, r.LineContent, r.Page}
	if r.WordBoxPosition != nil {
		out = append(out, *r.WordBoxPosition)
	}
	if r.WordBoxContent != nil {
		out = append(out, *r.WordBoxContent)
	}
	if r.WordBoxConfidence != nil {
		out = append(out, *r.WordBoxConfidence)
	}
	return out
}
