// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 1200
	DefaultChunkOverlap = 200
)

// separators are tried in order: paragraphs, lines, words, characters.
var separators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text into overlapping chunks bounded by Size characters,
// preferring paragraph breaks over line breaks over spaces.
type Chunker struct {
	Size    int
	Overlap int
}

func (c Chunker) size() int {
	if c.Size <= 0 {
		return DefaultChunkSize
	}
	return c.Size
}

func (c Chunker) overlap() int {
	if c.Overlap < 0 || c.Overlap >= c.size() {
		return 0
	}
	return c.Overlap
}

// Split returns the chunks of text in order. Blank text yields none.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, separators)
}

func (c Chunker) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep, rest = s, seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, sep)
	}

	var out, fits []string
	for _, p := range pieces {
		if p == "" {
			continue
		}
		if utf8.RuneCountInString(p) < c.size() {
			fits = append(fits, p)
			continue
		}
		if len(fits) > 0 {
			out = append(out, c.merge(fits, sep)...)
			fits = nil
		}
		if len(rest) == 0 {
			out = append(out, p)
		} else {
			out = append(out, c.split(p, rest)...)
		}
	}
	if len(fits) > 0 {
		out = append(out, c.merge(fits, sep)...)
	}
	return out
}

// merge packs pieces into chunks of at most size characters, carrying up to
// overlap characters of trailing pieces into the next chunk.
func (c Chunker) merge(pieces []string, sep string) []string {
	size, overlap := c.size(), c.overlap()
	sepLen := utf8.RuneCountInString(sep)
	joinCost := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var (
		docs  []string
		cur   []string
		total int
	)
	for _, p := range pieces {
		n := utf8.RuneCountInString(p)
		if total+n+joinCost(len(cur)) > size && len(cur) > 0 {
			if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > overlap || (total+n+joinCost(len(cur)) > size && total > 0) {
				total -= utf8.RuneCountInString(cur[0]) + joinCost(len(cur)-1)
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += n + joinCost(len(cur)-1)
	}
	if doc := strings.TrimSpace(strings.Join(cur, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// pythonKeywords mark a chunk as Python-focused.
var pythonKeywords = map[string]bool{
	"def": true, "class": true, "import": true, "from": true, "async": true,
	"await": true, "lambda": true, "yield": true, "with": true, "try": true,
	"except": true, "finally": true, "global": true, "nonlocal": true, "pass": true,
	"raise": true, "return": true, "for": true, "while": true, "if": true,
	"elif": true, "else": true, "match": true, "case": true, "type": true,
	"typing": true, "pytest": true, "pip": true, "virtualenv": true, "poetry": true,
	"fastapi": true, "langchain": true,
}

var (
	codeFenceRe  = regexp.MustCompile("(?is)```(?:python)?.*?```")
	identifierRe = regexp.MustCompile(`[a-z_][a-z0-9_]*`)
)

// Relevance thresholds for PythonRelevance.
const (
	RelevanceThreshold = 0.02
	minKeywordHits     = 2
)

// PythonRelevance scores how Python-centric text is. Any fenced code block
// scores 1; otherwise keyword hits are normalised by the square root of the
// token count, and fewer than two hits score 0.
func PythonRelevance(text string) float64 {
	lower := strings.ToLower(text)
	if codeFenceRe.MatchString(lower) {
		return 1
	}
	tokens := identifierRe.FindAllString(lower, -1)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, t := range tokens {
		if pythonKeywords[t] {
			hits++
		}
	}
	if hits < minKeywordHits {
		return 0
	}
	return float64(hits) / math.Sqrt(float64(len(tokens)))
}
