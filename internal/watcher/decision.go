// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"fmt"
	"os"

	"github.com/pdfer/internal/document"
	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/store"
)

// Decision says whether a detected file should be OCRed
type Decision struct {
	FilePath      string
	FileHash      string
	ShouldProcess bool
	Reason        string
}

// DecisionEngine skips files whose content was already processed successfully
type DecisionEngine struct {
	store *store.Store
}

// NewDecisionEngine creates a new decision engine
func NewDecisionEngine(st *store.Store) *DecisionEngine {
	return &DecisionEngine{store: st}
}

// Decide determines whether a file needs processing
func (de *DecisionEngine) Decide(filePath string) (*Decision, error) {
	decision := &Decision{FilePath: filePath}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() == 0 {
		decision.Reason = "file is empty"
		return decision, nil
	}

	hash, err := document.Hash(filePath)
	if err != nil {
		return nil, err
	}
	decision.FileHash = hash

	tracked, err := de.store.TrackedDocument(filePath)
	if err != nil {
		return nil, err
	}

	switch {
	case tracked == nil:
		decision.ShouldProcess = true
		decision.Reason = "new document"
	case tracked.Hash != hash:
		decision.ShouldProcess = true
		decision.Reason = "document changed"
	case tracked.Status == store.StatusFailed:
		decision.ShouldProcess = true
		decision.Reason = "retrying failed document"
	default:
		decision.Reason = fmt.Sprintf("document unchanged (%s)", tracked.Status)
	}
	return decision, nil
}

// RecoverInFlight makes documents whose jobs were lost with a previous process
// eligible again. Pending jobs die with their worker. Queued jobs survive only
// in a durable queue.
func RecoverInFlight(st *store.Store, durableQueue bool) error {
	statuses := []string{store.StatusPending}
	if !durableQueue {
		statuses = append(statuses, store.StatusQueued)
	}

	n, err := st.ResetInFlight(statuses...)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Printf("Recovered %d interrupted documents (%v)", n, statuses)
	}
	return nil
}
