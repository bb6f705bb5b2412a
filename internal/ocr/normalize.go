// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ocr

import (
	"github.com/google/uuid"
)

// FlatRow is one record of the tabular OCR output. It describes either a whole
// line (no word-boxes recognized) or a single word-box within a line.
// nil word-box fields mean the line had no word-boxes.
type FlatRow struct {
	LineID            string       `json:"line_id"`
	LinePosition      BoundingBox  `json:"line_position"`
	LineContent       string       `json:"line_content"`
	WordBoxPosition   *BoundingBox `json:"word_box_position"`
	WordBoxContent    *string      `json:"word_box_content"`
	WordBoxConfidence *float64     `json:"word_box_confidence"`
	Page              int          `json:"page"`
}

// HasWordBox reports whether the row was derived from a word-box.
func (r FlatRow) HasWordBox() bool {
	return r.WordBoxPosition != nil
}

// newLineID is swapped in tests
var newLineID = uuid.NewString

// CountRows returns the number of rows NormalizeLines produces for lines.
func CountRows(lines []RecognizedLine) int {
	n := 0
	for _, line := range lines {
		if len(line.WordBoxes) == 0 {
			n++
			continue
		}
		n += len(line.WordBoxes)
	}
	return n
}

// NormalizeLines flattens the lines of one page into rows, one per word-box,
// or one per line when the line has no word-boxes. Every line gets a fresh
// identifier shared by all of its rows. Input order is preserved.
func NormalizeLines(lines []RecognizedLine, page int) []FlatRow {
	rows := make([]FlatRow, 0, CountRows(lines))
	for _, line := range lines {
		rows = appendLine(rows, line, page)
	}
	return rows
}

// NormalizeDocument flattens a sequence of pages. Pages are stamped 1..n by
// their position in pages, whatever their Page field says.
func NormalizeDocument(pages []PageLines) []FlatRow {
	total := 0
	for _, p := range pages {
		total += CountRows(p.Lines)
	}

	rows := make([]FlatRow, 0, total)
	for i, p := range pages {
		for _, line := range p.Lines {
			rows = appendLine(rows, line, i+1)
		}
	}
	return rows
}

func appendLine(rows []FlatRow, line RecognizedLine, page int) []FlatRow {
	id := newLineID()

	if len(line.WordBoxes) == 0 {
		return append(rows, FlatRow{
			LineID:       id,
			LinePosition: line.Position,
			LineContent:  line.Content,
			Page:         page,
		})
	}

	for _, wb := range line.WordBoxes {
		pos := wb.Position
		content := wb.Content
		var conf *float64
		if wb.Confidence != nil {
			c := *wb.Confidence
			conf = &c
		}
		rows = append(rows, FlatRow{
			LineID:            id,
			LinePosition:      line.Position,
			LineContent:       line.Content,
			WordBoxPosition:   &pos,
			WordBoxContent:    &content,
			WordBoxConfidence: conf,
			Page:              page,
		})
	}
	return rows
}
