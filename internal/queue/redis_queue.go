// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdfer/internal/logger"
)

// DefaultKey is the Redis list used when no key is configured.
const DefaultKey = "pdfer:jobs"

// RedisQueue implements Queue using Redis Lists.
type RedisQueue struct {
	client *redis.Client
	key    string
	// pollTimeout bounds each BLPOP so cancellation is noticed without a helper goroutine
	pollTimeout time.Duration
}

// NewRedisQueue creates a new Redis-backed queue on the given list key.
func NewRedisQueue(ctx context.Context, client *redis.Client, key string) (*RedisQueue, error) {
	if key == "" {
		key = DefaultKey
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	logger.Debugf("NewRedisQueue: key=%s", key)

	return &RedisQueue{
		client:      client,
		key:         key,
		pollTimeout: time.Second,
	}, nil
}

// Key returns the Redis list key.
func (r *RedisQueue) Key() string { return r.key }

// Enqueue adds a job to the queue using RPUSH.
func (r *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}

	logger.Debugf("Enqueue: key=%s type=%s payloadSize=%d", r.key, job.Type, len(data))
	return nil
}

// Dequeue blocks until a job is available using BLPOP, then returns it.
func (r *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		val, err := r.client.BLPop(ctx, r.pollTimeout, r.key).Result()
		if errors.Is(err, redis.Nil) {
			// Poll timeout, nothing queued yet
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Job{}, ctxErr
			}
			return Job{}, fmt.Errorf("failed to pop from Redis: %w", err)
		}

		if len(val) < 2 {
			return Job{}, fmt.Errorf("invalid result from Redis, expected 2 elements, got %d", len(val))
		}

		var job Job
		if err := json.Unmarshal([]byte(val[1]), &job); err != nil {
			return Job{}, fmt.Errorf("failed to unmarshal job: %w", err)
		}

		logger.Debugf("Dequeue: key=%s type=%s createdAt=%s", r.key, job.Type, job.CreatedAt.Format(time.RFC3339))
		return job, nil
	}
}
