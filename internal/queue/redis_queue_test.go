// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"testing"
	"time"

	"github.com/pdfer/internal/config"
)

func newTestRedisQueue(t *testing.T, suffix string) *RedisQueue {
	t.Helper()

	// Skip if Redis is not available
	ctx := context.Background()
	client, err := config.NewRedisClient(ctx, config.Default().Redis)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	// Use a unique queue key for this test
	queueKey := "test:pdfer:" + suffix + ":" + time.Now().Format("20060102150405.000")
	q, err := NewRedisQueue(ctx, client, queueKey)
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}

	t.Cleanup(func() {
		client.Del(ctx, queueKey)
		client.Close()
	})
	return q
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	q := newTestRedisQueue(t, "roundtrip")
	ctx := context.Background()

	job, err := NewOCRDocumentJob(OCRDocumentPayload{Path: "/inbox/a.pdf", Output: "/out/a.xlsx"})
	if err != nil {
		t.Fatalf("NewOCRDocumentJob failed: %v", err)
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	dequeueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dequeued, err := q.Dequeue(dequeueCtx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}

	payload, err := DecodeOCRDocument(dequeued)
	if err != nil {
		t.Fatalf("DecodeOCRDocument failed: %v", err)
	}
	if payload.Path != "/inbox/a.pdf" || payload.Output != "/out/a.xlsx" {
		t.Errorf("Unexpected payload %+v", payload)
	}
}

func TestRedisQueue_FIFO(t *testing.T) {
	q := newTestRedisQueue(t, "fifo")
	ctx := context.Background()

	paths := []string{"/a.pdf", "/b.pdf", "/c.pdf"}
	for _, p := range paths {
		job, _ := NewOCRDocumentJob(OCRDocumentPayload{Path: p})
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue failed for %s: %v", p, err)
		}
	}

	dequeueCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, want := range paths {
		job, err := q.Dequeue(dequeueCtx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		payload, err := DecodeOCRDocument(job)
		if err != nil {
			t.Fatalf("DecodeOCRDocument failed: %v", err)
		}
		if payload.Path != want {
			t.Errorf("Expected %s, got %s", want, payload.Path)
		}
	}
}

func TestRedisQueue_ContextCancellation(t *testing.T) {
	q := newTestRedisQueue(t, "cancel")

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(cancelCtx)
	if err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
