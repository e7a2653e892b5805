// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CitationKind distinguishes retrieved documents from web results.
type CitationKind string

const (
	CitationDocument CitationKind = "document"
	CitationWeb      CitationKind = "web"
)

// Citation is a source that answer text may reference with an inline
// marker such as [doc-3] or [web-1]. IDs are assigned once at research
// time and never reused within a run.
type Citation struct {
	ID        string       `json:"id" yaml:"id"`
	SourceRef string       `json:"source_ref" yaml:"source_ref"`
	Kind      CitationKind `json:"kind" yaml:"kind"`

	// RelevanceScore is the similarity distance for documents; nil for web results.
	RelevanceScore *float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// DocumentID links document citations back to their source document.
	DocumentID string `json:"document_id,omitempty" yaml:"document_id,omitempty"`
}

// Marker returns the inline form of the citation, e.g. "[doc-1]".
func (c Citation) Marker() string {
	return "[" + c.ID + "]"
}
