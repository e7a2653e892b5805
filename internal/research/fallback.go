// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import "github.com/pdiddy/answer-engine/pkg/types"

// DefaultFallbackThreshold is the best-match distance above which a single
// retrieved document is considered too weak to answer from.
const DefaultFallbackThreshold = 0.5

// NeedsWebSearch reports whether retrieval is insufficient and the answer
// should rely on web results: no documents at all, or fewer than two
// documents whose best distance exceeds threshold. Docs are expected in
// closest-first order.
func NeedsWebSearch(docs []types.RetrievalResult, threshold float64) bool {
	if len(docs) == 0 {
		return true
	}
	return len(docs) < 2 && docs[0].SimilarityScore > threshold
}
