// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// JobTypeOCRDocument asks a worker to OCR one PDF and store its rows.
const JobTypeOCRDocument = "ocr_document"

// Job represents a job in the queue.
type Job struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// OCRDocumentPayload is the payload of an ocr_document job.
type OCRDocumentPayload struct {
	Path string `json:"path"`
	Hash string `json:"hash,omitempty"`
	// RelPath is Path relative to the watched directory it was found in
	RelPath string `json:"rel_path,omitempty"`
	// Output is an optional .xlsx path to export rows to
	Output string `json:"output,omitempty"`
}

// NewOCRDocumentJob builds an ocr_document job.
func NewOCRDocumentJob(p OCRDocumentPayload) (Job, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return Job{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return Job{Type: JobTypeOCRDocument, Payload: data, CreatedAt: time.Now()}, nil
}

// DecodeOCRDocument reads the payload of an ocr_document job.
func DecodeOCRDocument(job Job) (OCRDocumentPayload, error) {
	var p OCRDocumentPayload
	if job.Type != JobTypeOCRDocument {
		return p, fmt.Errorf("unexpected job type %q", job.Type)
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if p.Path == "" {
		return p, fmt.Errorf("ocr_document job without path")
	}
	return p, nil
}

// Queue defines the interface for job queues.
type Queue interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available, then returns it.
	// Returns an error if the context is cancelled or if the operation fails.
	Dequeue(ctx context.Context) (Job, error)
}
