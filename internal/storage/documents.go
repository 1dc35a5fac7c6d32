// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// MemoryPath keeps the database in memory for the life of the Store.
const MemoryPath = ":memory:"

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrEmptyDocument indicates the upload had no text.
	ErrEmptyDocument = errors.New("document is empty")
)

// =============================================================================
// TYPES
// =============================================================================

// Document is an uploaded file.
type Document struct {
	ID         int64
	Filename   string
	Size       int
	UploadedAt time.Time
	ChunkCount int
}

// Timestamp returns UploadedAt as fractional Unix seconds.
func (d Document) Timestamp() float64 {
	return float64(d.UploadedAt.UnixNano()) / 1e9
}

// Match is a chunk returned by Search.
type Match struct {
	Filename string
	Seq      int
	Content  string
	Score    float64 // Fraction of query terms found in the chunk
}

// =============================================================================
// STORE
// =============================================================================

// Store keeps documents and chunks in SQLite. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens or creates the database at path. MemoryPath (or "") keeps
// everything in memory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and each new connection
	// to :memory: would be a different database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// AddDocument stores text under filename, split into chunks. An existing
// document with the same name is replaced.
func (s *Store) AddDocument(ctx context.Context, filename, text string, chunkSize, overlap int) (*Document, error) {
	chunks := SplitText(text, chunkSize, overlap)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE filename = ?", filename); err != nil {
		return nil, fmt.Errorf("failed to replace document: %w", err)
	}

	uploadedAt := s.now()
	doc := &Document{
		Filename:   filename,
		Size:       len(text),
		UploadedAt: uploadedAt,
		ChunkCount: len(chunks),
	}
	result, err := tx.ExecContext(ctx,
		"INSERT INTO documents (filename, size, uploaded_at) VALUES (?, ?, ?)",
		filename, doc.Size, doc.Timestamp())
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}
	if doc.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO chunks (document_id, seq, content) VALUES (?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()
	for i, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx, doc.ID, i, chunk); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit document: %w", err)
	}
	return doc, nil
}

// Documents lists documents in upload order.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.filename, d.size, d.uploaded_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.uploaded_at, d.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var ts float64
		if err := rows.Scan(&d.ID, &d.Filename, &d.Size, &ts, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		sec, frac := math.Modf(ts)
		d.UploadedAt = time.Unix(int64(sec), int64(frac*1e9))
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ChunkCount returns the number of stored chunks across all documents.
func (s *Store) ChunkCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, filename string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE filename = ?", filename)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return nil
}

// Clear removes every document.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	return nil
}

// Search returns up to k chunks whose term overlap with query is at least
// threshold, best first. Ties keep upload order.
func (s *Store) Search(ctx context.Context, query string, k int, threshold float64) ([]Match, error) {
	terms := Terms(query)
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.filename, c.seq, c.content
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		ORDER BY d.uploaded_at, d.id, c.seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Filename, &m.Seq, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		m.Score = Overlap(terms, m.Content)
		if m.Score >= threshold && m.Score > 0 {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// SplitText splits text into windows of size runes that overlap by
// overlap runes. Whitespace-only text yields no chunks.
func SplitText(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Terms returns the distinct lower-cased words of s that are longer than
// two characters.
func Terms(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	seen := make(map[string]bool, len(fields))
	var terms []string
	for _, f := range fields {
		if len([]rune(f)) <= 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Overlap returns the fraction of terms present in text.
func Overlap(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	present := make(map[string]bool)
	for _, t := range Terms(text) {
		present[t] = true
	}
	hits := 0
	for _, t := range terms {
		if present[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
