// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// SimilaritySearch returns up to limit chunks whose cosine distance to
// vector is at most maxDistance, closest first. Result IDs are left empty;
// citation IDs are assigned by the caller.
func (s *Store) SimilaritySearch(ctx context.Context, vector []float64, limit int, maxDistance float64) ([]types.RetrievalResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.document_id, c.chunk_index, c.content, c.embedding,
			d.title, COALESCE(d.source_uri, ''), COALESCE(d.metadata, '')
		FROM chunks c
		JOIN documents d ON d.id = c.document_id`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []types.RetrievalResult
	for rows.Next() {
		var (
			r        types.RetrievalResult
			embJSON  string
			metaJSON string
		)
		if err := rows.Scan(&r.DocumentID, &r.ChunkIndex, &r.Content, &embJSON, &r.Title, &r.SourceURI, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		var emb []float64
		if err := json.Unmarshal([]byte(embJSON), &emb); err != nil {
			return nil, fmt.Errorf("decoding embedding for %s/%d: %w", r.DocumentID, r.ChunkIndex, err)
		}
		dist, ok := CosineDistance(vector, emb)
		if !ok || dist > maxDistance {
			continue
		}
		r.SimilarityScore = dist

		if metaJSON != "" && metaJSON != "null" {
			_ = json.Unmarshal([]byte(metaJSON), &r.DocumentMetadata)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore < results[j].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineDistance returns 1 - cosine similarity of a and b. It reports false
// when the vectors differ in length or either has zero magnitude.
func CosineDistance(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), true
}
