// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package notify

import (
	"fmt"
	"path/filepath"

	"github.com/gen2brain/beeep"

	"github.com/pdfer/internal/logger"
)

// Notifier reports finished documents to the user.
type Notifier interface {
	DocumentDone(path string, pages, rows int)
	DocumentFailed(path string, err error)
}

// Nop discards notifications
type Nop struct{}

func (Nop) DocumentDone(string, int, int) {}
func (Nop) DocumentFailed(string, error)  {}

// Desktop sends OS notifications through beeep.
type Desktop struct {
	// notify and alert are swapped in tests
	notify func(title, message string, icon any) error
	alert  func(title, message string, icon any) error
}

// NewDesktop creates a desktop notifier
func NewDesktop() *Desktop {
	return &Desktop{notify: beeep.Notify, alert: beeep.Alert}
}

// New returns a Desktop notifier when enabled, Nop otherwise
func New(enabled bool) Notifier {
	if !enabled {
		return Nop{}
	}
	return NewDesktop()
}

func (d *Desktop) DocumentDone(path string, pages, rows int) {
	title := "pdfer: document processed"
	message := fmt.Sprintf("%s: %d pages, %d rows", filepath.Base(path), pages, rows)
	if err := d.notify(title, message, ""); err != nil {
		logger.Warnf("Failed to send OS notification: %v", err)
	}
}

func (d *Desktop) DocumentFailed(path string, err error) {
	title := "pdfer: document failed"
	message := fmt.Sprintf("%s: %v", filepath.Base(path), err)
	if nerr := d.alert(title, message, ""); nerr != nil {
		logger.Warnf("Failed to send OS notification: %v", nerr)
	}
}
