// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ocr

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const hocrLineSelector = ".ocr_line, .ocrx_line, .ocr_caption, .ocr_header, .ocr_textfloat"

// ParseHOCR reads Tesseract hOCR output into per-page recognized lines.
// API reference: https://pkg.go.dev/github.com/PuerkitoBio/goquery
func ParseHOCR(r io.Reader) ([]PageLines, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	pageNodes := doc.Find(".ocr_page")
	if pageNodes.Length() == 0 {
		// Fragment without page wrappers, treat as a single page
		lines, err := parseHOCRLines(doc.Selection)
		if err != nil {
			return nil, err
		}
		return []PageLines{{Page: 1, Lines: lines}}, nil
	}

	pages := make([]PageLines, 0, pageNodes.Length())
	var parseErr error
	pageNodes.EachWithBreak(func(i int, s *goquery.Selection) bool {
		lines, err := parseHOCRLines(s)
		if err != nil {
			parseErr = fmt.Errorf("page %d: %w", i+1, err)
			return false
		}
		pages = append(pages, PageLines{Page: i + 1, Lines: lines})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return pages, nil
}

func parseHOCRLines(s *goquery.Selection) ([]RecognizedLine, error) {
	lines := []RecognizedLine{}
	var parseErr error

	s.Find(hocrLineSelector).EachWithBreak(func(_ int, ls *goquery.Selection) bool {
		props := hocrProperties(ls.AttrOr("title", ""))
		pos, err := hocrBBox(props)
		if err != nil {
			parseErr = fmt.Errorf("line %q: %w", ls.AttrOr("id", ""), err)
			return false
		}

		line := RecognizedLine{Position: pos}
		var words []string
		ls.Find(".ocrx_word").EachWithBreak(func(_ int, ws *goquery.Selection) bool {
			wprops := hocrProperties(ws.AttrOr("title", ""))
			wpos, err := hocrBBox(wprops)
			if err != nil {
				parseErr = fmt.Errorf("word %q: %w", ws.AttrOr("id", ""), err)
				return false
			}
			text := strings.TrimSpace(ws.Text())
			line.WordBoxes = append(line.WordBoxes, RecognizedWordBox{
				Position:   wpos,
				Content:    text,
				Confidence: hocrConfidence(wprops),
			})
			words = append(words, text)
			return true
		})
		if parseErr != nil {
			return false
		}

		if len(words) > 0 {
			line.Content = strings.Join(words, " ")
		} else {
			line.Content = strings.Join(strings.Fields(ls.Text()), " ")
		}
		lines = append(lines, line)
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return lines, nil
}

// hocrProperties splits a title attribute such as
// "bbox 36 92 96 116; x_wconf 96" into name -> arguments.
func hocrProperties(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		props[fields[0]] = fields[1:]
	}
	return props
}

func hocrBBox(props map[string][]string) (BoundingBox, error) {
	args, ok := props["bbox"]
	if !ok {
		return BoundingBox{}, fmt.Errorf("%w: missing bbox", ErrMalformedHOCR)
	}
	if len(args) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrMalformedHOCR, len(args))
	}

	var v [4]float64
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: bbox value %q", ErrMalformedHOCR, a)
		}
		v[i] = f
	}
	return BoundingBox{Min: Point{X: v[0], Y: v[1]}, Max: Point{X: v[2], Y: v[3]}}, nil
}

// hocrConfidence converts x_wconf (0..100) to 0..1. Unparseable or absent values are missing.
func hocrConfidence(props map[string][]string) *float64 {
	args, ok := props["x_wconf"]
	if !ok || len(args) == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil
	}
	c := f / 100.0
	return &c
}
