// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
)

// MemoryQueue implements Queue with a buffered channel, for single-process runs without Redis.
type MemoryQueue struct {
	jobs chan Job
}

// NewMemoryQueue creates a queue holding up to size pending jobs.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 100
	}
	return &MemoryQueue{jobs: make(chan Job, size)}
}

// Enqueue blocks while the queue is full.
func (m *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.jobs <- job:
		return nil
	}
}

// Dequeue blocks until a job is available.
func (m *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case job := <-m.jobs:
		return job, nil
	}
}

// Len returns the number of pending jobs.
func (m *MemoryQueue) Len() int {
	return len(m.jobs)
}
