// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Technical gate thresholds.
const (
	TechnicalThreshold      = 85.0
	CoverageGate            = 0.65
	CitationDensityGate     = 1.0
	wordsPerCitationWindow  = 150.0
	groundednessDensityNorm = 1.5
)

// techSignals are the measurements every technical criterion reads.
type techSignals struct {
	lower     string
	content   string
	coverage  float64
	density   float64
	citations int
}

func measureTechnical(in Input) techSignals {
	s := techSignals{
		lower:     strings.ToLower(in.Content),
		content:   in.Content,
		citations: citation.Count(in.Content),
	}

	s.coverage = 1
	if len(in.Docs) > 0 {
		docIDs := make(map[string]bool, len(in.Docs))
		for _, d := range in.Docs {
			docIDs[d.ID] = true
		}
		kinds := make(map[string]types.CitationKind, len(in.Citations))
		for _, c := range in.Citations {
			kinds[c.ID] = c.Kind
		}
		cited := 0
		for _, id := range citation.ExtractIDs(in.Content) {
			if docIDs[id] || kinds[id] == types.CitationDocument {
				cited++
			}
		}
		s.coverage = float64(cited) / float64(len(in.Docs))
		if s.coverage > 1 {
			s.coverage = 1
		}
	}

	words := float64(wordCount(in.Content))
	if words < 1 {
		words = 1
	}
	window := words / wordsPerCitationWindow
	if window < 1 {
		window = 1
	}
	s.density = float64(s.citations) / window
	return s
}

// Technical scores a draft for grounding, correctness, and pedagogy.
type Technical struct{}

func (Technical) Name() string { return RubricTechnical }

func (Technical) criteria(s techSignals) []criterion {
	return []criterion{
		{key: "groundedness", title: "Groundedness & Citation", points: 20, score: func(Input) (float64, string) { return groundedness(s, 20) }},
		{key: "technical_correctness", title: "Technical Correctness", points: 15, score: func(Input) (float64, string) { return technicalCorrectness(s, 15) }},
		{key: "people_first_pedagogy", title: "People-First Pedagogy", points: 15, score: func(Input) (float64, string) { return peopleFirstPedagogy(s, 15) }},
		{key: "psw_actionability", title: "PSW Actionability", points: 10, score: func(Input) (float64, string) { return pswActionability(s, 10) }},
		{key: "mode_fidelity", title: "Mode Fidelity", points: 10, score: func(Input) (float64, string) { return modeFidelity(s, 10) }},
		{key: "self_paced_scaffolding", title: "Self-Paced Scaffolding", points: 10, score: func(Input) (float64, string) { return selfPacedScaffolding(s, 10) }},
		{key: "retrieval_quality", title: "Retrieval Quality", points: 10, score: func(Input) (float64, string) { return retrievalQuality(s, 10) }},
		{key: "clarity", title: "Clarity", points: 5, score: func(Input) (float64, string) { return clarity(s, 5) }},
		{key: "bloom_alignment", title: "Bloom Alignment", points: 3, score: func(Input) (float64, string) { return bloomAlignment(s, 3) }},
		{key: "people_first_language", title: "People-First Language", points: 2, score: func(Input) (float64, string) { return peopleFirstLanguage(s, 2) }},
	}
}

// Evaluate scores in.Content. Besides the weighted total, the answer must
// clear the coverage, citation density, executability, and scope gates.
func (t Technical) Evaluate(in Input) types.EvaluationReport {
	s := measureTechnical(in)
	if blank(in.Content) {
		return minimalWithCriteria(RubricTechnical, TechnicalThreshold, "Content is empty; write a complete, cited answer.", t.criteria(s))
	}

	report := score(RubricTechnical, TechnicalThreshold, in, t.criteria(s), func(c criterion, got float64) bool {
		return got < 0.7*c.points
	})

	execOK := strings.Contains(in.Content, "```") || containsAny(s.lower, "import ", "def ", "class ")
	scopeOK := strings.Contains(s.lower, "python")
	for _, w := range strings.Fields(strings.ToLower(in.Question)) {
		if strings.Contains(s.lower, w) {
			scopeOK = true
			break
		}
	}

	if s.coverage < CoverageGate {
		report.Feedback = append(report.Feedback, fmt.Sprintf("Coverage below threshold (%.2f < %.2f); cite more relevant chunks.", s.coverage, CoverageGate))
	}
	if s.density < CitationDensityGate {
		report.Feedback = append(report.Feedback, fmt.Sprintf("Citation density low (%.2f); attach citations to substantive claims.", s.density))
	}
	if !execOK {
		report.Feedback = append(report.Feedback, "Add runnable Python snippets or detail execution expectations.")
	}
	if !scopeOK {
		report.Feedback = append(report.Feedback, "Keep the answer aligned with the question scope and Python focus.")
	}

	report.Metrics["coverage"] = round2(s.coverage)
	report.Metrics["citation_density"] = round2(s.density)
	report.Metrics["citations"] = float64(s.citations)
	report.Metrics["exec_ok"] = boolMetric(execOK)
	report.Metrics["scope_ok"] = boolMetric(scopeOK)

	report.Passed = report.Passed &&
		s.coverage >= CoverageGate &&
		s.density >= CitationDensityGate &&
		execOK && scopeOK
	return report
}

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func groundedness(s techSignals, w float64) (float64, string) {
	d := s.density / groundednessDensityNorm
	if d > 1 {
		d = 1
	}
	return w * (0.5*s.coverage + 0.5*d), fmt.Sprintf("Coverage=%.2f, density=%.2f", s.coverage, s.density)
}

func technicalCorrectness(s techSignals, w float64) (float64, string) {
	matches := countAny(s.lower, "def", "class", "import", "lambda", "async", "await", "yield")
	m := float64(matches) / 3
	if m > 1 {
		m = 1
	}
	if containsAny(s.lower, "traceback", "error") && m > 0.6 {
		m = 0.6
	}
	return w * m, fmt.Sprintf("%d python keywords detected", matches)
}

func peopleFirstPedagogy(s techSignals, w float64) (float64, string) {
	if containsAny(s.lower, "let's", "you will", "we will", "consider") {
		return w, "Conversational guidance"
	}
	return w * 0.6, "Add learner-centered framing"
}

func pswActionability(s techSignals, w float64) (float64, string) {
	matches := 0
	if containsAny(s.lower, "problem", "challenge") {
		matches++
	}
	if containsAny(s.lower, "system", "environment", "context") {
		matches++
	}
	if containsAny(s.lower, "win", "benefit", "outcome", "solution") {
		matches++
	}
	return w * float64(matches) / 3, fmt.Sprintf("PSW coverage %d/3 elements", matches)
}

func modeFidelity(s techSignals, w float64) (float64, string) {
	if containsAny(s.lower, "consider", "what if", "how might", "step", "first", "next") {
		return w, "Mode cues detected"
	}
	return w * 0.6, "Add coaching prompts"
}

func selfPacedScaffolding(s techSignals, w float64) (float64, string) {
	for _, line := range strings.Split(s.content, "\n") {
		line = strings.TrimSpace(line)
		for i := 1; i <= 5; i++ {
			if strings.HasPrefix(line, fmt.Sprintf("%d.", i)) {
				return w, "Numbered steps provided"
			}
		}
	}
	return w * 0.5, "Add a stepwise plan"
}

func retrievalQuality(s techSignals, w float64) (float64, string) {
	m := s.coverage
	if s.citations == 0 {
		m *= 0.4
	}
	return w * m, fmt.Sprintf("Coverage score %.2f", s.coverage)
}

func clarity(s techSignals, w float64) (float64, string) {
	lengths := sentenceLengths(s.content)
	if len(lengths) == 0 {
		return w * 0.4, "No declarative sentences detected"
	}
	total := 0
	for _, n := range lengths {
		total += n
	}
	avg := float64(total) / float64(len(lengths))
	if avg >= 8 && avg <= 28 {
		return w, fmt.Sprintf("Average sentence length %.1f words", avg)
	}
	return w * 0.7, fmt.Sprintf("Average sentence length %.1f words", avg)
}

func bloomAlignment(s techSignals, w float64) (float64, string) {
	matches := countAny(s.lower, "implement", "design", "analyze", "explain", "compare")
	m := float64(matches) / 2
	if m > 1 {
		m = 1
	}
	return w * m, fmt.Sprintf("%d higher-order verbs detected", matches)
}

func peopleFirstLanguage(s techSignals, w float64) (float64, string) {
	if containsAny(s.lower, "please", "consider", "let's", "together", "feel free") &&
		!containsAny(s.lower, "idiot", "stupid", "lazy") {
		return w, "Respectful tone"
	}
	return w * 0.5, "Adopt more respectful phrasing"
}

// sentenceLengths returns the word count of each non-empty sentence, with
// '.', '!' and '?' all ending a sentence.
func sentenceLengths(text string) []int {
	var out []int
	for _, seg := range strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '!' || r == '?' }) {
		if n := wordCount(seg); n > 0 {
			out = append(out, n)
		}
	}
	return out
}
