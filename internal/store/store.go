// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdfer/internal/ocr"
)

// Document status values
const (
	StatusQueued  = "queued"
	StatusPending = "pending"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// Store keeps processed documents and their flat OCR rows in SQLite
type Store struct {
	db *sql.DB
}

// TrackedDocument is a document the store has seen
type TrackedDocument struct {
	Path        string
	Hash        string
	Status      string
	Pages       int
	ProcessedAt sql.NullTime
}

// Open creates and initializes the database under dir
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dir, "pdfer.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Workers and the watcher write concurrently; SQLite allows one writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		status TEXT DEFAULT 'pending',
		pages INTEGER DEFAULT 0,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS flat_rows (
		document_path TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		line_id TEXT NOT NULL,
		page INTEGER NOT NULL,
		line_position TEXT NOT NULL,
		line_content TEXT NOT NULL,
		word_position TEXT,
		word_content TEXT,
		word_confidence REAL,
		PRIMARY KEY (document_path, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(hash);
	CREATE INDEX IF NOT EXISTS idx_flat_rows_line ON flat_rows(line_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// TrackedDocument returns the document stored under path, or nil if there is none
func (s *Store) TrackedDocument(path string) (*TrackedDocument, error) {
	var td TrackedDocument

	err := s.db.QueryRow(
		"SELECT path, hash, status, pages, processed_at FROM documents WHERE path = ?",
		path,
	).Scan(&td.Path, &td.Hash, &td.Status, &td.Pages, &td.ProcessedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return &td, nil
}

// UpsertDocument inserts or updates a document record
func (s *Store) UpsertDocument(path, hash, status string, pages int) error {
	const query = `
		INSERT INTO documents (path, hash, status, pages, processed_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			status = excluded.status,
			pages = excluded.pages,
			processed_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.Exec(query, path, hash, status, pages); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// SaveRows replaces the rows stored for a document. The document must exist.
func (s *Store) SaveRows(path string, rows []ocr.FlatRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM flat_rows WHERE document_path = ?", path); err != nil {
		return fmt.Errorf("failed to clear rows: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO flat_rows (document_path, seq, line_id, page, line_position, line_content, word_position, word_content, word_confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		linePos, err := json.Marshal(row.LinePosition)
		if err != nil {
			return err
		}

		var wordPos, wordContent sql.NullString
		var wordConf sql.NullFloat64
		if row.WordBoxPosition != nil {
			b, err := json.Marshal(row.WordBoxPosition)
			if err != nil {
				return err
			}
			wordPos = sql.NullString{String: string(b), Valid: true}
		}
		if row.WordBoxContent != nil {
			wordContent = sql.NullString{String: *row.WordBoxContent, Valid: true}
		}
		if row.WordBoxConfidence != nil {
			wordConf = sql.NullFloat64{Float64: *row.WordBoxConfidence, Valid: true}
		}

		if _, err := stmt.Exec(path, i, row.LineID, row.Page, string(linePos), row.LineContent, wordPos, wordContent, wordConf); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Rows returns the stored rows of a document in their original order
func (s *Store) Rows(path string) ([]ocr.FlatRow, error) {
	rs, err := s.db.Query(`
		SELECT line_id, page, line_position, line_content, word_position, word_content, word_confidence
		FROM flat_rows WHERE document_path = ? ORDER BY seq
	`, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rs.Close()

	rows := []ocr.FlatRow{}
	for rs.Next() {
		var (
			row         ocr.FlatRow
			linePos     string
			wordPos     sql.NullString
			wordContent sql.NullString
			wordConf    sql.NullFloat64
		)
		if err := rs.Scan(&row.LineID, &row.Page, &linePos, &row.LineContent, &wordPos, &wordContent, &wordConf); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(linePos), &row.LinePosition); err != nil {
			return nil, fmt.Errorf("failed to decode line position: %w", err)
		}
		if wordPos.Valid {
			var pos ocr.BoundingBox
			if err := json.Unmarshal([]byte(wordPos.String), &pos); err != nil {
				return nil, fmt.Errorf("failed to decode word position: %w", err)
			}
			row.WordBoxPosition = &pos
		}
		if wordContent.Valid {
			content := wordContent.String
			row.WordBoxContent = &content
		}
		if wordConf.Valid {
			c := wordConf.Float64
			row.WordBoxConfidence = &c
		}
		rows = append(rows, row)
	}
	return rows, rs.Err()
}

// ResetInFlight marks documents in any of statuses as failed so they are picked up again.
// It is meant for startup, when jobs from a previous run are gone.
func (s *Store) ResetInFlight(statuses ...string) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(statuses)+1)
	args = append(args, StatusFailed)
	for _, status := range statuses {
		args = append(args, status)
	}
	query := "UPDATE documents SET status = ? WHERE status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")"

	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset in-flight documents: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDocument removes a document and its rows
func (s *Store) DeleteDocument(path string) error {
	if _, err := s.db.Exec("DELETE FROM documents WHERE path = ?", path); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
