// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(2)
	ctx := context.Background()

	job, err := NewOCRDocumentJob(OCRDocumentPayload{Path: "/inbox/x.pdf"})
	if err != nil {
		t.Fatalf("NewOCRDocumentJob failed: %v", err)
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("Expected 1 pending job, got %d", q.Len())
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.Type != JobTypeOCRDocument {
		t.Errorf("Expected job type %s, got %s", JobTypeOCRDocument, got.Type)
	}
}

func TestMemoryQueue_FullQueueRespectsContext(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx := context.Background()
	if err := q.Enqueue(ctx, Job{Type: "a"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(timeoutCtx, Job{Type: "b"}); err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestMemoryQueue_DequeueCancelled(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := q.Dequeue(ctx); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDecodeOCRDocument_Errors(t *testing.T) {
	tests := []struct {
		name string
		job  Job
	}{
		{"wrong type", Job{Type: "other", Payload: []byte(`{"path":"/a.pdf"}`)}},
		{"bad json", Job{Type: JobTypeOCRDocument, Payload: []byte(`{`)}},
		{"no path", Job{Type: JobTypeOCRDocument, Payload: []byte(`{}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeOCRDocument(tt.job); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
