// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import "strings"

// ClassifyComplexity guesses how deep an answer to question should go
// from keyword cues and question length.
func ClassifyComplexity(question string) string {
	lower := strings.ToLower(question)
	words := len(strings.Fields(lower))

	if containsAny(lower, "what is", "what are", "how to create", "how to write",
		"define", "print", "input", "variable", "comment") && words < 10 {
		return ComplexitySimple
	}
	if containsAny(lower, "why", "when should", "implications", "trade-offs",
		"best practices", "architecture", "design pattern",
		"performance", "optimization", "under the hood",
		"gil", "decorator", "metaclass", "async", "concurrency") {
		return ComplexityCritical
	}
	if strings.Contains(lower, " and ") && words > 15 {
		return ComplexityCritical
	}
	return ComplexityStandard
}

// ResolveComplexity returns level when it names a known complexity and
// otherwise classifies the question.
func ResolveComplexity(level, question string) string {
	switch level {
	case ComplexitySimple, ComplexityStandard, ComplexityCritical:
		return level
	}
	return ClassifyComplexity(question)
}

// ShouldEnrich reports whether a run at complexity level still needs the
// enrich stage. A simple question whose draft scored at or above threshold
// is answered well enough as it stands. A non-positive threshold always
// enriches.
func ShouldEnrich(level string, draftScore, threshold float64) bool {
	if threshold <= 0 || level != ComplexitySimple {
		return true
	}
	return draftScore < threshold
}
