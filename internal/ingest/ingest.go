// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest loads markdown and text files into the vector store:
// each file is chunked, the chunks are embedded in batches, and the
// document is stored with its embeddings.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/answer-engine/internal/vectorstore"
)

const (
	defaultBatchSize   = 32
	defaultConcurrency = 4
)

// Embedder turns texts into vectors, one per text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// DocumentStore persists a document and its embedded chunks.
type DocumentStore interface {
	AddDocument(ctx context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) (string, error)
}

// Ingester loads files into a DocumentStore.
type Ingester struct {
	Embedder Embedder
	Store    DocumentStore
	Chunker  Chunker

	// BatchSize is the number of chunks per embedding request.
	BatchSize int

	// Concurrency bounds the embedding requests in flight.
	Concurrency int

	// PythonOnly drops chunks scoring below RelevanceThreshold.
	PythonOnly bool

	Logger *zap.Logger
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path       string
	DocumentID string
	Chunks     int
	Dropped    int
	Err        error
}

// Summary totals an ingestion run.
type Summary struct {
	Files  []FileResult
	Stored int
	Failed int
	Chunks int
}

func (i *Ingester) logger() *zap.Logger {
	if i.Logger == nil {
		return zap.NewNop()
	}
	return i.Logger
}

// IngestPaths ingests each path. Directories are walked for .md, .markdown,
// and .txt files. A failing file is recorded and the rest continue; only
// context cancellation stops the run early.
func (i *Ingester) IngestPaths(ctx context.Context, paths []string) (Summary, error) {
	files, err := collectFiles(paths)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("ingesting: %w", err)
		}
		res := i.IngestFile(ctx, path)
		sum.Files = append(sum.Files, res)
		if res.Err != nil {
			sum.Failed++
			i.logger().Warn("ingest: file failed", zap.String("path", path), zap.Error(res.Err))
			continue
		}
		sum.Stored++
		sum.Chunks += res.Chunks
	}
	return sum, nil
}

// IngestFile chunks, embeds, and stores one file.
func (i *Ingester) IngestFile(ctx context.Context, path string) FileResult {
	res := FileResult{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("reading %s: %w", path, err)
		return res
	}
	text := string(data)

	pieces := i.Chunker.Split(text)
	if i.PythonOnly {
		kept := pieces[:0]
		for _, p := range pieces {
			if PythonRelevance(p) >= RelevanceThreshold {
				kept = append(kept, p)
			}
		}
		res.Dropped = len(pieces) - len(kept)
		pieces = kept
	}
	if len(pieces) == 0 {
		res.Err = errors.New("no content to ingest")
		return res
	}

	vectors, err := i.embed(ctx, pieces)
	if err != nil {
		res.Err = err
		return res
	}

	chunks := make([]vectorstore.Chunk, len(pieces))
	for n, p := range pieces {
		chunks[n] = vectorstore.Chunk{Index: n, Content: p, Embedding: vectors[n]}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc := vectorstore.Document{
		Title:      Title(text, path),
		SourceURI:  abs,
		SourceType: strings.TrimPrefix(filepath.Ext(path), "."),
		Metadata:   map[string]string{"filename": filepath.Base(path)},
	}
	id, err := i.Store.AddDocument(ctx, doc, chunks)
	if err != nil {
		res.Err = fmt.Errorf("storing %s: %w", path, err)
		return res
	}

	res.DocumentID = id
	res.Chunks = len(chunks)
	i.logger().Info("ingest: stored document",
		zap.String("path", path),
		zap.String("document_id", id),
		zap.Int("chunks", len(chunks)),
		zap.Int("dropped", res.Dropped),
	)
	return res
}

// embed requests embeddings in batches, several at a time, and returns them
// in input order.
func (i *Ingester) embed(ctx context.Context, texts []string) ([][]float64, error) {
	batch := i.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	limit := i.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	out := make([][]float64, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for start := 0; start < len(texts); start += batch {
		end := min(start+batch, len(texts))
		g.Go(func() error {
			vecs, err := i.Embedder.Embed(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedding chunks %d-%d: got %d vectors", start, end-1, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Title returns the first markdown heading, or the file name without its
// extension.
func Title(text, path string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var ingestible = map[string]bool{".md": true, ".markdown": true, ".txt": true}

func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && ingestible[strings.ToLower(filepath.Ext(path))] {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	return files, nil
}
