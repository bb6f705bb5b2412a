// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/ocr"
)

// Engine runs Tesseract through gosseract and reads word-level results from hOCR.
type Engine struct {
	pageSegMode   int
	clientFactory func() *gosseract.Client
}

// NewEngine creates a Tesseract engine. pageSegMode <= 0 keeps Tesseract's default.
func NewEngine(pageSegMode int) *Engine {
	return &Engine{
		pageSegMode:   pageSegMode,
		clientFactory: gosseract.NewClient,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Available returns ocr.ErrEngineUnavailable if no trained data can be found.
func Available() ([]string, error) {
	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ocr.ErrEngineUnavailable, err)
	}
	if len(langs) == 0 {
		return nil, fmt.Errorf("%w: no tesseract languages installed", ocr.ErrEngineUnavailable)
	}
	return langs, nil
}

// Recognize performs OCR on a single page image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) ([]ocr.RecognizedLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(in.Image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if e.pageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.pageSegMode)); err != nil {
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(in.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return nil, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	hocr, err := c.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("recognize page %d: %w", in.Page, err)
	}

	pages, err := ocr.ParseHOCR(strings.NewReader(hocr))
	if err != nil {
		return nil, fmt.Errorf("read hOCR for page %d: %w", in.Page, err)
	}

	// One image is one hOCR page
	var lines []ocr.RecognizedLine
	for _, p := range pages {
		lines = append(lines, p.Lines...)
	}
	logger.Debugf("Recognize: page=%d lines=%d", in.Page, len(lines))
	return lines, nil
}
