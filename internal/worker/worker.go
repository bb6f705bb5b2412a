// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/queue"
)

// HandlerFunc processes a job. It should return an error if processing fails.
type HandlerFunc func(ctx context.Context, job queue.Job) error

// dequeueBackoff is the pause after a failed dequeue so a broken queue does not spin
var dequeueBackoff = time.Second

// StartWorkers runs workerCount goroutines pulling jobs from q until ctx is cancelled.
// It blocks until every worker has stopped.
func StartWorkers(ctx context.Context, q queue.Queue, handler HandlerFunc, workerCount int) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	logger.Printf("StartWorkers: workerCount=%d", workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			workerLoop(ctx, q, handler, workerID)
		}()
	}

	wg.Wait()
	logger.Printf("StartWorkers: all workers stopped")
	return nil
}

// workerLoop is the main loop for a single worker.
func workerLoop(ctx context.Context, q queue.Queue, handler HandlerFunc, workerID int) {
	logger.Debugf("workerLoop: workerID=%d started", workerID)

	for {
		if ctx.Err() != nil {
			logger.Debugf("workerLoop: workerID=%d context cancelled, stopping", workerID)
			return
		}

		job, err := q.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Warnf("workerLoop: workerID=%d dequeue error: %v, retrying", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}

		logger.Debugf("workerLoop: workerID=%d processing job type=%s", workerID, job.Type)

		if err := runHandler(ctx, handler, job); err != nil {
			logger.Errorf("workerLoop: workerID=%d job type=%s failed: %v", workerID, job.Type, err)
			continue
		}
	}
}

// runHandler keeps a panicking handler from taking the worker down with it.
func runHandler(ctx context.Context, handler HandlerFunc, job queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return handler(ctx, job)
}

// PanicError wraps a value recovered from a handler panic
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}
