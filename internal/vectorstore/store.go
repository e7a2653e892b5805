// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vectorstore persists document chunks with their embeddings in
// SQLite and answers cosine-distance similarity queries over them.
package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store manages the chunk database.
type Store struct {
	db *sql.DB
}

// Document describes one ingested source document.
type Document struct {
	ID         string            `json:"id" yaml:"id"`
	Title      string            `json:"title" yaml:"title"`
	SourceURI  string            `json:"source_uri" yaml:"source_uri"`
	SourceType string            `json:"source_type" yaml:"source_type"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Chunks     int               `json:"chunks" yaml:"chunks"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
}

// Chunk is one embedded slice of a document.
type Chunk struct {
	Index     int
	Content   string
	Embedding []float64
}

// Open opens or creates the SQLite database at path and ensures the schema
// exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			source_uri TEXT,
			source_type TEXT,
			metadata TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_source_uri ON documents(source_uri)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT NOT NULL,
			UNIQUE(document_id, chunk_index)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddDocument stores a document and its chunks in one transaction. A
// document with the same SourceURI is replaced. The stored document ID is
// returned; a new one is generated when doc.ID is empty.
func (s *Store) AddDocument(ctx context.Context, doc Document, chunks []Chunk) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(doc.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if doc.SourceURI != "" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE source_uri = ?`, doc.SourceURI); err != nil {
			return "", fmt.Errorf("replacing document %s: %w", doc.SourceURI, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, source_uri, source_type, metadata, created_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourceURI, doc.SourceType, string(meta), doc.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, content, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		emb, err := json.Marshal(c.Embedding)
		if err != nil {
			return "", fmt.Errorf("marshaling embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, c.Index, c.Content, string(emb)); err != nil {
			return "", fmt.Errorf("inserting chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing document: %w", err)
	}
	return doc.ID, nil
}

// Documents lists stored documents with their chunk counts, newest first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.title, COALESCE(d.source_uri, ''), COALESCE(d.source_type, ''),
			COALESCE(d.metadata, ''), d.created_at, COUNT(c.rowid)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
		ORDER BY d.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			d       Document
			meta    string
			created string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.SourceURI, &d.SourceType, &meta, &created, &d.Chunks); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if meta != "" && meta != "null" {
			if err := json.Unmarshal([]byte(meta), &d.Metadata); err != nil {
				return nil, fmt.Errorf("decoding metadata for %s: %w", d.ID, err)
			}
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
