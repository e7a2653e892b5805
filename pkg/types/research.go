// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared records threaded through the answer
// pipeline: research results, citations, evaluation reports, the pipeline
// state itself, progress events, and configuration.
package types

// RetrievalResult is one chunk returned by a vector similarity search.
type RetrievalResult struct {
	// ID is the citation ID assigned at research time ("doc-N").
	ID string `json:"id" yaml:"id"`

	// DocumentID identifies the source document the chunk belongs to.
	DocumentID string `json:"document_id" yaml:"document_id"`

	Title     string `json:"title" yaml:"title"`
	SourceURI string `json:"source_uri,omitempty" yaml:"source_uri,omitempty"`
	Content   string `json:"content" yaml:"content"`

	// SimilarityScore is a cosine distance: lower is closer.
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	ChunkIndex       int               `json:"chunk_index" yaml:"chunk_index"`
	DocumentMetadata map[string]string `json:"document_metadata,omitempty" yaml:"document_metadata,omitempty"`
}

// SourceRef returns the URI when known, falling back to the title.
func (r RetrievalResult) SourceRef() string {
	if r.SourceURI != "" {
		return r.SourceURI
	}
	return r.Title
}

// PriorityTier ranks a web source by authority. Tier 1 is the highest.
type PriorityTier int

const (
	TierOfficial  PriorityTier = 1
	TierAcademic  PriorityTier = 2
	TierCommunity PriorityTier = 3
)

// WebResult is one web search hit restricted to a tier's domain allow-list.
type WebResult struct {
	// ID is the citation ID assigned at research time ("web-N").
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	URL     string `json:"url" yaml:"url"`
	Summary string `json:"summary" yaml:"summary"`

	PriorityTier PriorityTier `json:"priority_tier" yaml:"priority_tier"`

	// TierRank mirrors PriorityTier as a plain number for consumers that
	// sort on it (1 is highest priority).
	TierRank int `json:"tier_rank" yaml:"tier_rank"`
}
