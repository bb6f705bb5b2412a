// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package ocr

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable is returned when no usable OCR engine is installed.
	ErrEngineUnavailable = errors.New("no OCR engine available")
	// ErrMalformedHOCR is returned when hOCR geometry cannot be read.
	ErrMalformedHOCR = errors.New("malformed hOCR")
)

// Point is a coordinate in image pixels, origin upper-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is described by its two opposite corners
type BoundingBox struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// RecognizedWordBox is a single recognized word.
// A nil Confidence means the engine reported none.
type RecognizedWordBox struct {
	Position   BoundingBox `json:"position"`
	Content    string      `json:"content"`
	Confidence *float64    `json:"confidence,omitempty"`
}

// RecognizedLine is a recognized text line with its word-boxes (possibly none).
type RecognizedLine struct {
	Position  BoundingBox         `json:"position"`
	Content   string              `json:"content"`
	WordBoxes []RecognizedWordBox `json:"word_boxes,omitempty"`
}

// PageLines is the OCR output of one document page.
type PageLines struct {
	Page  int              `json:"page"`
	Lines []RecognizedLine `json:"lines"`
}

// Input is one rasterized page submitted for recognition.
type Input struct {
	// Image is PNG-encoded
	Image []byte
	// Page is the 1-based page the image was rendered from
	Page      int
	DPI       int
	Languages []string
	// Metadata carries engine-specific variables (e.g. tessedit_char_whitelist)
	Metadata map[string]string
}

// Engine recognizes text lines on a page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) ([]RecognizedLine, error)
}
