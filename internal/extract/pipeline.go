// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/pdfer/internal/document"
	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/ocr"
)

// Source is a paginated document that can be rasterized.
type Source interface {
	NumPages() int
	RenderPage(page int, dpi float64) ([]byte, error)
}

// Table is the flat OCR output of a whole document.
type Table struct {
	Source string
	Pages  int
	Rows   []ocr.FlatRow
}

// Pipeline renders pages, runs OCR on them and normalizes the results.
type Pipeline struct {
	engine    ocr.Engine
	dpi       int
	languages []string
	workers   int
	metadata  map[string]string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDPI sets the rasterization resolution.
func WithDPI(dpi int) Option {
	return func(p *Pipeline) {
		if dpi > 0 {
			p.dpi = dpi
		}
	}
}

// WithLanguages sets OCR language hints (e.g. "eng", "deu").
func WithLanguages(langs ...string) Option {
	return func(p *Pipeline) { p.languages = append([]string(nil), langs...) }
}

// WithWorkers bounds how many pages are recognized at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithEngineMetadata passes engine-specific variables through to every page.
func WithEngineMetadata(metadata map[string]string) Option {
	return func(p *Pipeline) {
		p.metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			p.metadata[k] = v
		}
	}
}

// NewPipeline creates a pipeline around an OCR engine
func NewPipeline(engine ocr.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine:  engine,
		dpi:     300,
		workers: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run opens the PDF at path and OCRs every page.
func (p *Pipeline) Run(ctx context.Context, path string) (*Table, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	table, err := p.RunSource(ctx, doc)
	if err != nil {
		return nil, err
	}
	table.Source = path
	return table, nil
}

// RunSource OCRs every page of src. Pages are recognized concurrently but the
// resulting rows keep page order. The first failure cancels the remaining pages.
func (p *Pipeline) RunSource(ctx context.Context, src Source) (*Table, error) {
	numPages := src.NumPages()
	logger.Debugf("RunSource: engine=%s pages=%d workers=%d dpi=%d", p.engine.Name(), numPages, p.workers, p.dpi)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pages := make([]ocr.PageLines, numPages)
	sem := make(chan struct{}, p.workers)

	var (
		wg       sync.WaitGroup
		renderMu sync.Mutex
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i := 0; i < numPages; i++ {
		page := i + 1
		select {
		case <-ctx.Done():
			fail(ctx.Err())
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			// MuPDF documents are not rendered concurrently
			renderMu.Lock()
			img, err := src.RenderPage(page, float64(p.dpi))
			renderMu.Unlock()
			if err != nil {
				fail(fmt.Errorf("page %d: %w", page, err))
				return
			}

			lines, err := p.engine.Recognize(ctx, ocr.Input{
				Image:     img,
				Page:      page,
				DPI:       p.dpi,
				Languages: p.languages,
				Metadata:  p.metadata,
			})
			if err != nil {
				fail(fmt.Errorf("page %d: %w", page, err))
				return
			}

			pages[page-1] = ocr.PageLines{Page: page, Lines: lines}
			logger.Debugf("RunSource: page=%d lines=%d", page, len(lines))
		}()
	}

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows := ocr.NormalizeDocument(pages)
	logger.Printf("RunSource: normalized %d pages into %d rows", numPages, len(rows))
	return &Table{Pages: numPages, Rows: rows}, nil
}

// Text returns the embedded text of one page (page > 0) or of the whole document (page == 0).
func Text(path string, page int) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	if page == 0 {
		return doc.AllText()
	}
	return doc.PageText(page)
}
