// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pdfer/internal/logger"
	"github.com/pdfer/internal/queue"
	"github.com/pdfer/internal/store"
)

// Manager watches inbox directories and enqueues new or changed PDFs
type Manager struct {
	watchPaths []string
	queue      queue.Queue
	store      *store.Store
	decision   *DecisionEngine
	debouncer  *Debouncer
	watchers   map[string]*fsnotify.Watcher
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewManager creates a watcher manager
func NewManager(watchPaths []string, q queue.Queue, st *store.Store, debounce time.Duration) *Manager {
	m := &Manager{
		watchPaths: watchPaths,
		queue:      q,
		store:      st,
		decision:   NewDecisionEngine(st),
		watchers:   make(map[string]*fsnotify.Watcher),
	}
	m.debouncer = NewDebouncer(debounce, isCandidate, m.processFile)
	return m
}

// IsPDF checks the file extension
func IsPDF(filePath string) bool {
	return strings.EqualFold(filepath.Ext(filePath), ".pdf")
}

// IsTemporaryFile checks if a file is a temporary file (e.g., ~$doc.pdf)
func IsTemporaryFile(filePath string) bool {
	base := filepath.Base(filePath)
	return strings.HasPrefix(base, "~$") ||
		strings.HasPrefix(base, "._") ||
		strings.HasPrefix(base, ".~") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part")
}

func isCandidate(filePath string) bool {
	return IsPDF(filePath) && !IsTemporaryFile(filePath)
}

// Start starts watching all configured paths. Existing PDFs are scanned once.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx, m.cancel = context.WithCancel(ctx)

	for _, path := range m.watchPaths {
		if err := m.addWatchPath(path); err != nil {
			logger.Errorf("Failed to watch path %s: %v", path, err)
			continue
		}
	}
	if len(m.watchers) == 0 {
		m.cancel()
		return fmt.Errorf("no watch paths could be watched")
	}

	for path, w := range m.watchers {
		m.wg.Add(1)
		go m.processEvents(path, w)
	}
	return nil
}

// Stop stops all watchers and pending debounced events
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.debouncer.Stop()

	m.mu.Lock()
	for path, w := range m.watchers {
		if err := w.Close(); err != nil {
			logger.Warnf("Error closing watcher for %s: %v", path, err)
		}
		delete(m.watchers, path)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// WatchedPaths returns the absolute directories being watched
func (m *Manager) WatchedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	paths := make([]string, 0, len(m.watchers))
	for path := range m.watchers {
		paths = append(paths, path)
	}
	return paths
}

// addWatchPath adds a directory to watch (recursively)
func (m *Manager) addWatchPath(rootPath string) error {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if _, exists := m.watchers[absPath]; exists {
		return nil
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	var existing []string
	if err := filepath.Walk(absPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.Add(path); err != nil {
				logger.Warnf("failed to watch %s: %v", path, err)
			}
			return nil
		}
		existing = append(existing, path)
		return nil
	}); err != nil {
		w.Close()
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	m.watchers[absPath] = w
	logger.Printf("Watching directory (recursive): %s", absPath)

	for _, path := range existing {
		m.debouncer.Trigger(path)
	}
	return nil
}

// processEvents processes file system events
func (m *Manager) processEvents(root string, w *fsnotify.Watcher) {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.Add(event.Name); err != nil {
						logger.Warnf("Failed to watch new directory %s: %v", event.Name, err)
					}
					continue
				}
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if _, err := os.Stat(event.Name); os.IsNotExist(err) {
					m.forget(event.Name)
					continue
				}
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				m.debouncer.Trigger(event.Name)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Errorf("Watcher error for %s: %v", root, err)
		}
	}
}

// processFile enqueues a settled file if the decision engine says so
func (m *Manager) processFile(filePath string) {
	if m.ctx == nil || m.ctx.Err() != nil {
		return
	}

	decision, err := m.decision.Decide(filePath)
	if err != nil {
		// Renamed away or deleted before it settled
		logger.Warnf("Failed to decide on file %s: %v", filePath, err)
		return
	}
	if !decision.ShouldProcess {
		logger.Debugf("Skipping file: %s - %s", filePath, decision.Reason)
		return
	}

	job, err := queue.NewOCRDocumentJob(queue.OCRDocumentPayload{
		Path:    filePath,
		Hash:    decision.FileHash,
		RelPath: m.relPath(filePath),
	})
	if err != nil {
		logger.Errorf("Failed to build job for %s: %v", filePath, err)
		return
	}
	if err := m.store.UpsertDocument(filePath, decision.FileHash, store.StatusQueued, 0); err != nil {
		logger.Errorf("Failed to record %s: %v", filePath, err)
		return
	}
	if err := m.queue.Enqueue(m.ctx, job); err != nil {
		logger.Errorf("Failed to enqueue %s: %v", filePath, err)
		if serr := m.store.UpsertDocument(filePath, decision.FileHash, store.StatusFailed, 0); serr != nil {
			logger.Errorf("Failed to record %s: %v", filePath, serr)
		}
		return
	}
	logger.Printf("Queued %s (%s)", filePath, decision.Reason)
}

// forget drops a removed PDF from the pending set and the store
func (m *Manager) forget(filePath string) {
	if !isCandidate(filePath) {
		return
	}
	m.debouncer.Cancel(filePath)

	if err := m.store.DeleteDocument(filePath); err != nil {
		logger.Errorf("Failed to forget %s: %v", filePath, err)
		return
	}
	logger.Debugf("Forgot removed file %s", filePath)
}

// relPath returns filePath relative to the deepest watched root containing it
func (m *Manager) relPath(filePath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := ""
	for root := range m.watchers {
		rel, err := filepath.Rel(root, filePath)
		if err != nil || !filepath.IsLocal(rel) {
			continue
		}
		if best == "" || len(rel) < len(best) {
			best = rel
		}
	}
	return best
}
