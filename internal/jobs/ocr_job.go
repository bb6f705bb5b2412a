// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfer/internal/document"
	"github.com/pdfer/internal/export"
	"github.com/pdfer/internal/extract"
	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/notify"
	"github.com/pdfer/internal/queue"
	"github.com/pdfer/internal/store"
)

// Runner produces the flat OCR table of a document.
type Runner interface {
	Run(ctx context.Context, path string) (*extract.Table, error)
}

// OCRHandler processes ocr_document jobs: OCR, persist, export, notify.
type OCRHandler struct {
	runner    Runner
	store     *store.Store
	notifier  notify.Notifier
	outputDir string
}

// NewOCRHandler creates a handler. An empty outputDir disables export unless
// the job names an explicit output file.
func NewOCRHandler(runner Runner, st *store.Store, notifier notify.Notifier, outputDir string) *OCRHandler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &OCRHandler{
		runner:    runner,
		store:     st,
		notifier:  notifier,
		outputDir: outputDir,
	}
}

// EnqueueOCRDocument enqueues an ocr_document job.
func EnqueueOCRDocument(ctx context.Context, q queue.Queue, payload queue.OCRDocumentPayload) error {
	job, err := queue.NewOCRDocumentJob(payload)
	if err != nil {
		return err
	}
	if err := q.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", payload.Path, err)
	}
	logger.Printf("EnqueueOCRDocument: path=%s", payload.Path)
	return nil
}

// Handle processes an ocr_document job. Other job types are ignored.
func (h *OCRHandler) Handle(ctx context.Context, job queue.Job) error {
	if job.Type != queue.JobTypeOCRDocument {
		logger.Warnf("OCRHandler: unexpected job type %s, expected %s", job.Type, queue.JobTypeOCRDocument)
		return nil
	}

	payload, err := queue.DecodeOCRDocument(job)
	if err != nil {
		return err
	}

	start := time.Now()
	hash := payload.Hash
	if hash == "" {
		if hash, err = document.Hash(payload.Path); err != nil {
			h.notifier.DocumentFailed(payload.Path, err)
			return err
		}
	}

	if err := h.store.UpsertDocument(payload.Path, hash, store.StatusPending, 0); err != nil {
		h.notifier.DocumentFailed(payload.Path, err)
		return err
	}

	table, err := h.runner.Run(ctx, payload.Path)
	if err != nil {
		return h.fail(payload.Path, hash, fmt.Errorf("ocr %s: %w", payload.Path, err))
	}

	if err := h.store.SaveRows(payload.Path, table.Rows); err != nil {
		return h.fail(payload.Path, hash, err)
	}

	if output := h.outputPath(payload); output != "" {
		if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return h.fail(payload.Path, hash, fmt.Errorf("failed to create output directory: %w", err))
		}
		if err := export.SaveXLSX(output, table.Rows); err != nil {
			return h.fail(payload.Path, hash, err)
		}
		logger.Printf("OCRHandler: exported %s", output)
	}

	// Done only once rows and export are both in place
	if err := h.store.UpsertDocument(payload.Path, hash, store.StatusDone, table.Pages); err != nil {
		return h.fail(payload.Path, hash, err)
	}

	logger.Printf("OCRHandler: processed %s pages=%d rows=%d in %s", payload.Path, table.Pages, len(table.Rows), time.Since(start).Round(time.Millisecond))
	h.notifier.DocumentDone(payload.Path, table.Pages, len(table.Rows))
	return nil
}

// fail marks the document failed so the watcher retries it, and reports err.
func (h *OCRHandler) fail(path, hash string, err error) error {
	if serr := h.store.UpsertDocument(path, hash, store.StatusFailed, 0); serr != nil {
		logger.Errorf("OCRHandler: failed to mark %s as failed: %v", path, serr)
	}
	h.notifier.DocumentFailed(path, err)
	return err
}

func (h *OCRHandler) outputPath(p queue.OCRDocumentPayload) string {
	if p.Output != "" {
		return p.Output
	}
	if h.outputDir == "" {
		return ""
	}
	// Keep the inbox layout so equal names in different folders do not collide
	name := filepath.Base(p.Path)
	if p.RelPath != "" && filepath.IsLocal(p.RelPath) {
		name = p.RelPath
	}
	return filepath.Join(h.outputDir, strings.TrimSuffix(name, filepath.Ext(name))+".xlsx")
}
