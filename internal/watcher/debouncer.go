// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package watcher

import (
	"os"
	"sync"
	"time"
)

// Debouncer waits until a file has stopped changing before handing it on.
// Paths rejected by accept are dropped on Trigger.
type Debouncer struct {
	delay  time.Duration
	accept func(string) bool
	settle func(string)

	mu      sync.Mutex
	pending map[string]*pendingFile
	stopped bool
}

type pendingFile struct {
	timer *time.Timer
	// size at the last check, -1 when the file could not be stat'ed
	size int64
}

// NewDebouncer creates a debouncer. A nil accept takes every path.
func NewDebouncer(delay time.Duration, accept func(string) bool, settle func(string)) *Debouncer {
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &Debouncer{
		delay:   delay,
		accept:  accept,
		settle:  settle,
		pending: make(map[string]*pendingFile),
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// Trigger (re)starts the quiet period for path. It reports whether path was accepted.
func (d *Debouncer) Trigger(path string) bool {
	if !d.accept(path) {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	if p, ok := d.pending[path]; ok {
		p.size = fileSize(path)
		p.timer.Reset(d.delay)
		return true
	}

	p := &pendingFile{size: fileSize(path)}
	p.timer = time.AfterFunc(d.delay, func() { d.check(path) })
	d.pending[path] = p
	return true
}

// check fires settle once the size held still for a full delay, otherwise waits again
func (d *Debouncer) check(path string) {
	d.mu.Lock()
	p, ok := d.pending[path]
	if !ok || d.stopped {
		d.mu.Unlock()
		return
	}

	if size := fileSize(path); size != p.size {
		p.size = size
		p.timer.Reset(d.delay)
		d.mu.Unlock()
		return
	}
	delete(d.pending, path)
	d.mu.Unlock()

	d.settle(path)
}

// Cancel drops a pending path, e.g. when the file was removed
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[path]; ok {
		p.timer.Stop()
		delete(d.pending, path)
	}
}

// Pending returns the number of paths waiting to settle
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels all pending paths and rejects later triggers
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
}
