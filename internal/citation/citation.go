// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation extracts, validates, and repairs inline citation markers
// such as [doc-3] and [web-1] in answer text.
package citation

import (
	"regexp"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// markerRe matches an inline citation marker; group 1 is the ID.
var markerRe = regexp.MustCompile(`\[((?:doc|web)-\d+)\]`)

// ExtractIDs returns the citation IDs in text in order of first appearance.
func ExtractIDs(text string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}

// Count returns the number of markers in text, repeats included.
func Count(text string) int {
	return len(markerRe.FindAllStringIndex(text, -1))
}

// Validate returns the IDs cited in text that have no entry in citations.
func Validate(text string, citations []types.Citation) []string {
	known := idSet(citations)
	var unknown []string
	for _, id := range ExtractIDs(text) {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	return unknown
}

// Strip removes markers whose IDs have no entry in citations, along with
// the space that preceded them.
func Strip(text string, citations []types.Citation) string {
	known := idSet(citations)
	locs := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		id := text[loc[2]:loc[3]]
		if known[id] {
			continue
		}
		start := loc[0]
		if start > last && text[start-1] == ' ' {
			start--
		}
		b.WriteString(text[last:start])
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// Used returns the citations referenced in text, in citation-list order.
func Used(text string, citations []types.Citation) []types.Citation {
	cited := make(map[string]bool)
	for _, id := range ExtractIDs(text) {
		cited[id] = true
	}
	var out []types.Citation
	for _, c := range citations {
		if cited[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// Build creates the run's citation list: documents first, then web
// results, each in enumeration order.
func Build(docs []types.RetrievalResult, web []types.WebResult) []types.Citation {
	out := make([]types.Citation, 0, len(docs)+len(web))
	for _, d := range docs {
		score := d.SimilarityScore
		out = append(out, types.Citation{
			ID:             d.ID,
			SourceRef:      d.SourceRef(),
			Kind:           types.CitationDocument,
			RelevanceScore: &score,
			DocumentID:     d.DocumentID,
		})
	}
	for _, w := range web {
		out = append(out, types.Citation{
			ID:        w.ID,
			SourceRef: w.URL,
			Kind:      types.CitationWeb,
		})
	}
	return out
}

func idSet(citations []types.Citation) map[string]bool {
	m := make(map[string]bool, len(citations))
	for _, c := range citations {
		m[c.ID] = true
	}
	return m
}
