// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// CompilerThreshold is the pass mark for compiled content.
const CompilerThreshold = 95.0

var backtickTermRe = regexp.MustCompile("`([^`]+)`")

// Compiler scores content rewritten into a problem/system/win arc against
// the draft it was compiled from.
type Compiler struct{}

func (Compiler) Name() string { return RubricCompiler }

// Floors returns the hard floor of each floored criterion.
func (Compiler) Floors() map[string]float64 { return floorsOf(compilerCriteria) }

var compilerCriteria = []criterion{
	{key: "technical_preservation", title: "Technical Preservation", points: 30, floor: floor(28), score: compilerTechnicalPreservation},
	{key: "psw_structure", title: "PSW Structure", points: 20, score: compilerPSWStructure},
	{key: "micro_fix_clarity", title: "Micro-Fix Clarity", points: 20, floor: floor(15), score: compilerMicroFix},
	{key: "real_world_integration", title: "Real-World Integration", points: 15, score: compilerRealWorld},
	{key: "reflective_depth", title: "Reflective Depth", points: 15, score: compilerReflective},
}

// compilerFeedback holds the advice given when a criterion scores under
// its cutoff.
var compilerFeedback = map[string]struct {
	below float64
	text  string
}{
	"technical_preservation": {28, "CRITICAL: Technical facts or citations were altered or removed"},
	"psw_structure":          {15, "PSW structure is too explicit or missing natural flow"},
	"micro_fix_clarity":      {15, "CRITICAL: 'Small fixes, big clarity' moment is unclear or missing"},
	"real_world_integration": {12, "Need more embedded examples AND dedicated Real-World Examples section"},
	"reflective_depth":       {12, "Need more 'Consider...' prompts throughout AND final reflection question"},
}

func (Compiler) Evaluate(in Input) types.EvaluationReport {
	if blank(in.Content) {
		return minimalWithCriteria(RubricCompiler, CompilerThreshold, "Compiled content is empty; recompile from the draft.", compilerCriteria)
	}
	report := score(RubricCompiler, CompilerThreshold, in, compilerCriteria, nil)
	for _, c := range report.Criteria {
		fb := compilerFeedback[c.Key]
		switch {
		case c.Score < fb.below:
			report.Feedback = append(report.Feedback, fb.text)
		case c.Key == "technical_preservation" && c.Score < c.MaxPoints:
			report.Feedback = append(report.Feedback, "Some citations missing or technical details diluted")
		}
	}
	return report
}

// missingIDs returns the citation IDs in baseline that content lacks.
func missingIDs(baseline, content string) []string {
	present := make(map[string]bool)
	for _, id := range citation.ExtractIDs(content) {
		present[id] = true
	}
	var missing []string
	for _, id := range citation.ExtractIDs(baseline) {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

// termPreservation returns the fraction of the baseline's backtick terms
// found anywhere in content, and whether the baseline had any.
func termPreservation(baseline, content string, caseFold bool) (float64, bool) {
	terms := make(map[string]bool)
	for _, m := range backtickTermRe.FindAllStringSubmatch(baseline, -1) {
		terms[m[1]] = true
	}
	if len(terms) == 0 {
		return 1, false
	}
	haystack := content
	if caseFold {
		haystack = strings.ToLower(content)
	}
	kept := 0
	for t := range terms {
		needle := t
		if caseFold {
			needle = strings.ToLower(t)
		}
		if strings.Contains(haystack, needle) {
			kept++
		}
	}
	return float64(kept) / float64(len(terms)), true
}

func compilerTechnicalPreservation(in Input) (float64, string) {
	pts := 30.0
	var notes []string

	if missing := missingIDs(in.Baseline, in.Content); len(missing) > 0 {
		pts -= minf(10, 2*float64(len(missing)))
		notes = append(notes, fmt.Sprintf("missing citations %s", strings.Join(missing, ", ")))
	}

	base := strings.Count(in.Baseline, "```")
	got := strings.Count(in.Content, "```")
	switch {
	case base > 0 && got == 0:
		pts -= 10
		notes = append(notes, "no code blocks")
	case base > 0 && float64(got) < float64(base)*0.5:
		pts -= 3
		notes = append(notes, fmt.Sprintf("code fences reduced %d to %d", base, got))
	}

	if rate, ok := termPreservation(in.Baseline, in.Content, true); ok && rate < 0.6 {
		pts -= 5
		notes = append(notes, fmt.Sprintf("term preservation %.2f", rate))
	}
	return pts, rationale(notes, "technical content preserved")
}

func compilerPSWStructure(in Input) (float64, string) {
	pts := 20.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if containsAny(lower, "problem:", "system:", "win:") {
		pts -= 10
		notes = append(notes, "explicit PSW labels")
	}
	if !containsAny(firstN(lower, 500), "challenge", "question", "issue", "problem", "why", "when",
		"matter", "important", "pain point", "difficulty") {
		pts -= 5
		notes = append(notes, "no problem framing in opening")
	}
	if !containsAny(lower, "how", "works", "components", "technically", "mechanism",
		"process", "steps", "architecture") {
		pts -= 5
		notes = append(notes, "no system explanation")
	}
	if !containsAny(lastN(lower, 500), "enables", "improves", "benefit", "impact", "advantage",
		"workflow", "productivity", "efficiency") {
		pts -= 5
		notes = append(notes, "no win or impact in closing")
	}
	return pts, rationale(notes, "natural problem, system, win arc")
}

func compilerMicroFix(in Input) (float64, string) {
	lower := strings.ToLower(in.Content)
	n := countAny(lower, "small fix", "micro fix", "small change", "simple change",
		"one change", "key insight", "crucial detail", "critical point",
		"big clarity", "macro impact", "big impact", "unlocks")
	switch {
	case n == 0:
		return 5, "no micro-fix moment"
	case n < 2:
		return 12, "weak micro-fix moment"
	}
	return 20, fmt.Sprintf("%d micro-fix indicators", n)
}

func compilerRealWorld(in Input) (float64, string) {
	pts := 15.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if !containsAny(lower, "real-world example", "real world example") {
		pts -= 7
		notes = append(notes, "no real-world examples section")
	}
	if n := countAny(lower, "for example", "for instance", "consider", "imagine",
		"in practice", "production", "real-world", "industry"); n < 3 {
		pts -= 5
		notes = append(notes, fmt.Sprintf("%d embedded examples", n))
	}
	return pts, rationale(notes, "examples embedded and collected")
}

func compilerReflective(in Input) (float64, string) {
	pts := 15.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if n := strings.Count(lower, "consider"); n < 3 {
		pts -= 7
		notes = append(notes, fmt.Sprintf("%d consider prompts", n))
	}
	hasReflection := containsAny(lower, "reflection", "think about")
	if !hasReflection {
		pts -= 5
		notes = append(notes, "no reflection section")
	}
	if hasReflection && !strings.Contains(lastN(in.Content, 300), "?") {
		pts -= 3
		notes = append(notes, "no closing reflection question")
	}
	return pts, rationale(notes, "reflective prompts present")
}

func rationale(notes []string, ok string) string {
	if len(notes) == 0 {
		return ok
	}
	return strings.Join(notes, "; ")
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
