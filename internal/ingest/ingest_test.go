// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/internal/vectorstore"
)

func TestChunker_Split(t *testing.T) {
	tests := []struct {
		name    string
		chunker Chunker
		text    string
		want    []string
	}{
		{
			name:    "fits in one chunk",
			chunker: Chunker{Size: 20},
			text:    "aaaa\n\nbbbb\n\ncccc",
			want:    []string{"aaaa\n\nbbbb\n\ncccc"},
		},
		{
			name:    "paragraph bounded",
			chunker: Chunker{Size: 10},
			text:    "aaaa\n\nbbbb\n\ncccc",
			want:    []string{"aaaa\n\nbbbb", "cccc"},
		},
		{
			name:    "overlap carries trailing paragraph",
			chunker: Chunker{Size: 10, Overlap: 4},
			text:    "aaaa\n\nbbbb\n\ncccc",
			want:    []string{"aaaa\n\nbbbb", "bbbb\n\ncccc"},
		},
		{
			name:    "falls back to words",
			chunker: Chunker{Size: 12},
			text:    "alpha beta gamma delta",
			want:    []string{"alpha beta", "gamma delta"},
		},
		{
			name:    "blank",
			chunker: Chunker{},
			text:    " \n\n ",
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.chunker.Split(tt.text))
		})
	}
}

func TestChunker_SplitsLongRunByCharacters(t *testing.T) {
	chunks := Chunker{Size: 10}.Split(strings.Repeat("x", 25))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 10)
	assert.Len(t, chunks[1], 10)
	assert.Len(t, chunks[2], 5)
}

func TestChunker_BoundsChunkSize(t *testing.T) {
	text := strings.Repeat("Lists are ordered sequences of values.\n\n", 100)
	c := Chunker{Size: 300, Overlap: 50}
	for _, chunk := range c.Split(text) {
		assert.LessOrEqual(t, len(chunk), 300)
	}
}

func TestPythonRelevance(t *testing.T) {
	assert.Equal(t, 1.0, PythonRelevance("Example:\n```python\nprint(1)\n```"))
	assert.Zero(t, PythonRelevance("The weather is nice today."))
	assert.Zero(t, PythonRelevance(""))
	assert.Greater(t, PythonRelevance("def handler(): return value if ready else None"), RelevanceThreshold)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Python Lists", Title("intro\n# Python Lists\n\nbody", "notes/lists.md"))
	assert.Equal(t, "lists", Title("no heading here", "notes/lists.md"))
}

type fakeEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	fail    bool
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.mu.Lock()
	f.batches = append(f.batches, texts)
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("embedding service down")
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t)), 1}
	}
	return out, nil
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func openStore(t *testing.T) *vectorstore.Store {
	t.Helper()
	s, err := vectorstore.Open(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIngestPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lists.md", "# Lists\n\nLists are ordered.\n\nLists are mutable.")
	writeFile(t, dir, "nested/tuples.txt", "Tuples are fixed.")
	writeFile(t, dir, "image.png", "binary")

	store := openStore(t)
	emb := &fakeEmbedder{}
	ing := &Ingester{Embedder: emb, Store: store, Chunker: Chunker{Size: 20}, BatchSize: 1}

	sum, err := ing.IngestPaths(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Stored)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, 4, sum.Chunks)
	assert.Len(t, emb.batches, 4, "one request per chunk at batch size 1")

	docs, err := store.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	titles := []string{docs[0].Title, docs[1].Title}
	assert.ElementsMatch(t, []string{"Lists", "tuples"}, titles)

	results, err := store.SimilaritySearch(context.Background(), []float64{18, 1}, 10, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestIngestFile_EmbedOrderAcrossBatches(t *testing.T) {
	var paras []string
	for i := 0; i < 7; i++ {
		paras = append(paras, strings.Repeat(string(rune('a'+i)), i+5))
	}
	path := writeFile(t, t.TempDir(), "doc.md", strings.Join(paras, "\n\n"))

	rec := &recordingStore{}
	ing := &Ingester{Embedder: &fakeEmbedder{}, Store: rec, Chunker: Chunker{Size: 12}, BatchSize: 2, Concurrency: 3}

	res := ing.IngestFile(context.Background(), path)
	require.NoError(t, res.Err)
	require.Len(t, rec.chunks, 7)
	for i, c := range rec.chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, float64(len(c.Content)), c.Embedding[0], "vector matches its chunk")
	}
	assert.Equal(t, "md", rec.doc.SourceType)
}

func TestIngestFile_Failures(t *testing.T) {
	dir := t.TempDir()

	ing := &Ingester{Embedder: &fakeEmbedder{fail: true}, Store: &recordingStore{}}
	res := ing.IngestFile(context.Background(), writeFile(t, dir, "a.md", "content"))
	assert.ErrorContains(t, res.Err, "embedding service down")

	res = ing.IngestFile(context.Background(), writeFile(t, dir, "empty.md", "  \n"))
	assert.ErrorContains(t, res.Err, "no content")

	res = ing.IngestFile(context.Background(), filepath.Join(dir, "missing.md"))
	assert.Error(t, res.Err)
}

func TestIngestPaths_ContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.md", "Good content.")
	writeFile(t, dir, "empty.md", "")

	ing := &Ingester{Embedder: &fakeEmbedder{}, Store: &recordingStore{}}
	sum, err := ing.IngestPaths(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Stored)
	assert.Equal(t, 1, sum.Failed)

	_, err = ing.IngestPaths(context.Background(), []string{filepath.Join(dir, "nope")})
	assert.Error(t, err)
}

func TestIngestFile_PythonOnly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "mixed.md",
		"The weather is nice today.\n\ndef handler(): return value if ready else None")
	rec := &recordingStore{}
	ing := &Ingester{Embedder: &fakeEmbedder{}, Store: rec, Chunker: Chunker{Size: 50}, PythonOnly: true}

	res := ing.IngestFile(context.Background(), path)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Dropped)
	require.Len(t, rec.chunks, 1)
	assert.Contains(t, rec.chunks[0].Content, "def handler")
}

type recordingStore struct {
	doc    vectorstore.Document
	chunks []vectorstore.Chunk
}

func (r *recordingStore) AddDocument(_ context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) (string, error) {
	r.doc, r.chunks = doc, chunks
	return "doc-id", nil
}
