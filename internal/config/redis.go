// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package config

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pdfer/internal/logger"
)

// NewRedisClient creates a Redis client from the redis section and checks the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	logger.Debugf("NewRedisClient: addr=%s db=%d passwordSet=%v", cfg.Addr, cfg.DB, cfg.Password != "")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}
