// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package export

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pdfer/internal/ocr"
)

// SheetName is the worksheet holding the flat rows.
const SheetName = "rows"

// Header is the column layout of the exported sheet.
var Header = []string{
	"line_id", "page",
	"line_x0", "line_y0", "line_x1", "line_y1", "line_content",
	"word_x0", "word_y0", "word_x1", "word_y1", "word_content", "word_confidence",
}

// WriteXLSX writes rows as a workbook to w. Missing word-box fields become empty cells.
func WriteXLSX(w io.Writer, rows []ocr.FlatRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, rowValues(row)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.Write(w)
}

// SaveXLSX writes rows to a workbook file at path.
func SaveXLSX(path string, rows []ocr.FlatRow) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteXLSX(file, rows); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func rowValues(row ocr.FlatRow) []interface{} {
	values := []interface{}{
		row.LineID, row.Page,
		row.LinePosition.Min.X, row.LinePosition.Min.Y,
		row.LinePosition.Max.X, row.LinePosition.Max.Y,
		row.LineContent,
		nil, nil, nil, nil, nil, nil,
	}
	if p := row.WordBoxPosition; p != nil {
		values[7], values[8], values[9], values[10] = p.Min.X, p.Min.Y, p.Max.X, p.Max.Y
	}
	if row.WordBoxContent != nil {
		values[11] = *row.WordBoxContent
	}
	if row.WordBoxConfidence != nil {
		values[12] = *row.WordBoxConfidence
	}
	return values
}

// ReadXLSX reads rows previously written by WriteXLSX.
func ReadXLSX(path string) ([]ocr.FlatRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	records, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", SheetName, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s has no header", SheetName)
	}
	if strings.Join(records[0], ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected header in %s: %v", path, records[0])
	}

	rows := make([]ocr.FlatRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (ocr.FlatRow, error) {
	// GetRows trims trailing empty cells
	cells := make([]string, len(Header))
	copy(cells, rec)

	page, err := strconv.Atoi(cells[1])
	if err != nil {
		return ocr.FlatRow{}, fmt.Errorf("invalid page %q", cells[1])
	}
	linePos, err := parseBox(cells[2:6])
	if err != nil {
		return ocr.FlatRow{}, err
	}

	row := ocr.FlatRow{
		LineID:       cells[0],
		Page:         page,
		LinePosition: linePos,
		LineContent:  cells[6],
	}

	if cells[7] != "" {
		wordPos, err := parseBox(cells[7:11])
		if err != nil {
			return ocr.FlatRow{}, err
		}
		content := cells[11]
		row.WordBoxPosition = &wordPos
		row.WordBoxContent = &content
	}
	if cells[12] != "" {
		c, err := strconv.ParseFloat(cells[12], 64)
		if err != nil {
			return ocr.FlatRow{}, fmt.Errorf("invalid confidence %q", cells[12])
		}
		row.WordBoxConfidence = &c
	}
	return row, nil
}

func parseBox(cells []string) (ocr.BoundingBox, error) {
	var v [4]float64
	for i, c := range cells {
		f, err := strconv.ParseFloat(c, 64)
		if err != nil {
			return ocr.BoundingBox{}, fmt.Errorf("invalid coordinate %q", c)
		}
		v[i] = f
	}
	return ocr.BoundingBox{
		Min: ocr.Point{X: v[0], Y: v[1]},
		Max: ocr.Point{X: v[2], Y: v[3]},
	}, nil
}
