// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package document

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

var (
	// ErrNotFound is returned when the document path does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrEncrypted is returned when the document needs a password we do not have.
	ErrEncrypted = errors.New("document decryption failed")
	// ErrPageOutOfRange is returned for page numbers outside 1..NumPages.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Document is an open PDF backed by go-fitz (MuPDF).
// API reference: https://pkg.go.dev/github.com/gen2brain/go-fitz
type Document struct {
	path string
	doc  *fitz.Document
}

// Open opens a PDF file.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
		}
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	return &Document{path: path, doc: doc}, nil
}

// Path returns the file the document was opened from
func (d *Document) Path() string { return d.path }

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.doc.NumPage()
}

// pageIndex maps a 1-based page number to a MuPDF index. Page 0 is read as page 1.
func (d *Document) pageIndex(page int) (int, error) {
	if page == 0 {
		page = 1
	}
	if page < 0 || page > d.NumPages() {
		return 0, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, d.NumPages())
	}
	return page - 1, nil
}

// PageText extracts the text of a 1-based page.
func (d *Document) PageText(page int) (string, error) {
	idx, err := d.pageIndex(page)
	if err != nil {
		return "", err
	}

	text, err := d.doc.Text(idx)
	if err != nil {
		return "", fmt.Errorf("failed to extract text from page %d: %w", page, err)
	}
	return text, nil
}

// AllText extracts every page's text and joins the pages with a single space.
func (d *Document) AllText() (string, error) {
	texts := make([]string, 0, d.NumPages())
	for page := 1; page <= d.NumPages(); page++ {
		text, err := d.PageText(page)
		if err != nil {
			return "", err
		}
		texts = append(texts, text)
	}
	return strings.Join(texts, " "), nil
}

// RenderPage rasterizes a 1-based page to PNG at the given DPI.
func (d *Document) RenderPage(page int, dpi float64) ([]byte, error) {
	idx, err := d.pageIndex(page)
	if err != nil {
		return nil, err
	}

	img, err := d.doc.ImagePNG(idx, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

// Metadata returns the document information dictionary (title, author, ...).
func (d *Document) Metadata() map[string]string {
	return d.doc.Metadata()
}

// Close releases the MuPDF document.
func (d *Document) Close() error {
	return d.doc.Close()
}

// Hash returns the hex SHA-256 of the file at path.
func Hash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
