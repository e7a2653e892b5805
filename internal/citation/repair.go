// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// minTermLen is the shortest token treated as a key term.
const minTermLen = 5

var stopTerms = map[string]bool{
	"which": true, "where": true, "there": true, "these": true,
	"those": true, "their": true, "about": true,
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9_]+`)

// Result reports the outcome of a repair pass.
type Result struct {
	Text string

	// Attempted lists the required IDs missing from the transformed text.
	Attempted []string
	Recovered []string
	Failed    []string

	// PreservationRate is len(Recovered)/len(Attempted), or 1 when nothing
	// was missing.
	PreservationRate float64
}

// Repairer reattaches citation markers that a rewrite dropped.
type Repairer struct {
	Logger *zap.Logger
}

// Repair runs a Repairer that discards its log output.
func Repair(source, transformed string, required []string) Result {
	return (&Repairer{}).Repair(source, transformed, required)
}

// Repair finds each required ID missing from transformed, locates the
// first source sentence carrying it, and appends the marker to the
// transformed sentence sharing the most key terms with that origin. It is a
// lexical-overlap heuristic: a marker may land on an unrelated sentence that
// happens to share terms. Misses are logged and never fail the call.
func (r *Repairer) Repair(source, transformed string, required []string) Result {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}

	present := make(map[string]bool)
	for _, id := range ExtractIDs(transformed) {
		present[id] = true
	}

	res := Result{Text: transformed, PreservationRate: 1}
	seen := make(map[string]bool)
	for _, id := range required {
		if present[id] || seen[id] {
			continue
		}
		seen[id] = true
		res.Attempted = append(res.Attempted, id)
	}
	if len(res.Attempted) == 0 {
		return res
	}

	srcSentences := splitSentences(source)
	dst := splitSentences(transformed)

	for _, id := range res.Attempted {
		marker := "[" + id + "]"
		origin := -1
		for i, s := range srcSentences {
			if strings.Contains(s.text, marker) {
				origin = i
				break
			}
		}
		if origin < 0 {
			log.Warn("citation: repair failed, marker not in source",
				zap.String("citation", id),
			)
			res.Failed = append(res.Failed, id)
			continue
		}

		terms := keyTerms(markerRe.ReplaceAllString(srcSentences[origin].text, ""))
		best, bestScore := -1, 0
		for i, s := range dst {
			if n := overlap(s.text, terms); n > bestScore {
				best, bestScore = i, n
			}
		}
		if best < 0 || strings.Contains(dst[best].text, marker) {
			log.Warn("citation: repair failed, no matching sentence",
				zap.String("citation", id),
				zap.Strings("terms", terms),
			)
			res.Failed = append(res.Failed, id)
			continue
		}

		dst[best].text = attachMarker(dst[best].text, marker)
		res.Recovered = append(res.Recovered, id)
	}

	res.Text = joinSentences(dst)
	res.PreservationRate = float64(len(res.Recovered)) / float64(len(res.Attempted))
	return res
}

// keyTerms returns the distinct lowercase tokens of at least minTermLen
// characters that are not stop terms.
func keyTerms(sentence string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, w := range wordRe.FindAllString(strings.ToLower(sentence), -1) {
		if len(w) < minTermLen || stopTerms[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func overlap(sentence string, terms []string) int {
	lower := strings.ToLower(sentence)
	n := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}

// attachMarker inserts marker before the sentence's trailing punctuation.
func attachMarker(sentence, marker string) string {
	trimmed := strings.TrimRightFunc(sentence, unicode.IsSpace)
	tail := sentence[len(trimmed):]
	end := len(trimmed)
	for end > 0 && strings.ContainsRune(".!?", rune(trimmed[end-1])) {
		end--
	}
	body := strings.TrimRightFunc(trimmed[:end], unicode.IsSpace)
	return body + " " + marker + trimmed[end:] + tail
}

type sentence struct {
	text string
	sep  string
}

// splitSentences cuts text after each run of '.', '!' or '?' that is
// followed by whitespace, keeping the whitespace so joinSentences restores
// the original layout.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0
	i := 0
	for i < len(text) {
		if !strings.ContainsRune(".!?", rune(text[i])) {
			i++
			continue
		}
		j := i
		for j < len(text) && strings.ContainsRune(".!?", rune(text[j])) {
			j++
		}
		k := j
		for k < len(text) && isSpace(text[k]) {
			k++
		}
		if k == j && j < len(text) {
			i = j
			continue
		}
		out = append(out, sentence{text: text[start:j], sep: text[j:k]})
		start = k
		i = k
	}
	if start < len(text) {
		out = append(out, sentence{text: text[start:]})
	}
	return out
}

func joinSentences(sentences []sentence) string {
	var b strings.Builder
	for _, s := range sentences {
		b.WriteString(s.text)
		b.WriteString(s.sep)
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
