// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records finished runs in SQLite so answers can be
// listed, inspected, and exported later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is the stored summary of one pipeline run.
type Run struct {
	ID                   string             `json:"id" yaml:"id"`
	Question             string             `json:"question" yaml:"question"`
	Answer               string             `json:"answer" yaml:"answer"`
	FinalStage           string             `json:"final_stage" yaml:"final_stage"`
	Aborted              bool               `json:"aborted" yaml:"aborted"`
	AbortReason          string             `json:"abort_reason,omitempty" yaml:"abort_reason,omitempty"`
	AbortStage           string             `json:"abort_stage,omitempty" yaml:"abort_stage,omitempty"`
	RAGOnly              bool               `json:"rag_only" yaml:"rag_only"`
	Scores               map[string]float64 `json:"scores" yaml:"scores"`
	Retries              map[string]int     `json:"retries,omitempty" yaml:"retries,omitempty"`
	Citations            []types.Citation   `json:"citations" yaml:"citations"`
	CitationPreservation float64            `json:"citation_preservation" yaml:"citation_preservation"`
	CreatedAt            time.Time          `json:"created_at" yaml:"created_at"`
}

// FromState summarises a finished state. Only citations the answer uses are
// kept.
func FromState(state types.PipelineState) Run {
	r := Run{
		ID:                   state.RunID,
		Question:             state.Question,
		Answer:               state.Answer(),
		FinalStage:           state.FinalStage,
		Aborted:              state.Aborted(),
		RAGOnly:              state.RAGOnly,
		Scores:               make(map[string]float64, len(state.Evaluations)),
		Retries:              make(map[string]int, len(state.RetryCounters)),
		Citations:            citation.Used(state.Answer(), state.Citations),
		CitationPreservation: state.CitationPreservation,
		CreatedAt:            state.CreatedAt,
	}
	if state.Abort != nil {
		r.AbortReason = state.Abort.Reason
		r.AbortStage = state.Abort.AtStage
	}
	for stage, rep := range state.Evaluations {
		r.Scores[stage] = rep.TotalScore
	}
	for stage, n := range state.RetryCounters {
		r.Retries[stage] = n
	}
	return r
}

// Store manages the runs table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
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
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		final_stage TEXT,
		aborted INTEGER NOT NULL DEFAULT 0,
		abort_reason TEXT,
		abort_stage TEXT,
		rag_only INTEGER NOT NULL DEFAULT 0,
		scores TEXT,
		retries TEXT,
		citations TEXT,
		citation_preservation REAL,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`)
	return err
}

// Save stores the run summarised from state. Saving a run ID twice
// replaces the earlier record.
func (s *Store) Save(ctx context.Context, state types.PipelineState) (Run, error) {
	r := FromState(state)
	if r.ID == "" {
		return r, errors.New("saving run: state has no run ID")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return r, fmt.Errorf("marshaling scores: %w", err)
	}
	retries, err := json.Marshal(r.Retries)
	if err != nil {
		return r, fmt.Errorf("marshaling retries: %w", err)
	}
	cites, err := json.Marshal(r.Citations)
	if err != nil {
		return r, fmt.Errorf("marshaling citations: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		(id, question, answer, final_stage, aborted, abort_reason, abort_stage, rag_only,
		 scores, retries, citations, citation_preservation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Question, r.Answer, r.FinalStage, r.Aborted, r.AbortReason, r.AbortStage, r.RAGOnly,
		string(scores), string(retries), string(cites), r.CitationPreservation,
		r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return r, fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return r, nil
}

const selectRuns = `SELECT id, question, answer, COALESCE(final_stage, ''), aborted,
	COALESCE(abort_reason, ''), COALESCE(abort_stage, ''), rag_only,
	COALESCE(scores, ''), COALESCE(retries, ''), COALESCE(citations, ''),
	COALESCE(citation_preservation, 0), created_at
	FROM runs`

// List returns up to limit runs, newest first. A non-positive limit returns
// all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns one run by ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                      Run
		scores, retries, cites string
		created                string
	)
	err := sc.Scan(&r.ID, &r.Question, &r.Answer, &r.FinalStage, &r.Aborted, &r.AbortReason, &r.AbortStage,
		&r.RAGOnly, &scores, &retries, &cites, &r.CitationPreservation, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run: %w", err)
	}
	if err := decodeColumn(scores, &r.Scores); err != nil {
		return r, fmt.Errorf("decoding scores for %s: %w", r.ID, err)
	}
	if err := decodeColumn(retries, &r.Retries); err != nil {
		return r, fmt.Errorf("decoding retries for %s: %w", r.ID, err)
	}
	if err := decodeColumn(cites, &r.Citations); err != nil {
		return r, fmt.Errorf("decoding citations for %s: %w", r.ID, err)
	}
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	return r, nil
}

func decodeColumn(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export writes up to limit runs to w as YAML or JSON, oldest first.
func (s *Store) Export(ctx context.Context, w io.Writer, format string, limit int) error {
	runs, err := s.List(ctx, limit)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	if runs == nil {
		runs = []Run{}
	}

	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runs); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported export format %q", format)
}
