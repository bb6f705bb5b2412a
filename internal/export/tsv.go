// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfer/internal/ocr"
)

// WriteTSV writes rows as tab-separated text with the same columns as the workbook.
func WriteTSV(w io.Writer, rows []ocr.FlatRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(Header); err != nil {
		return err
	}
	record := make([]string, len(Header))
	for i, row := range rows {
		for j, v := range rowValues(row) {
			record[j] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCell(v interface{}) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
