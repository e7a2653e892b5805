// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// NarrativeThreshold is the pass mark for enriched, story-driven content.
const NarrativeThreshold = 80.0

// wordRange is the expected length of a narrative at each complexity.
var wordRange = map[string][2]int{
	ComplexitySimple:   {200, 500},
	ComplexityStandard: {400, 800},
	ComplexityCritical: {600, 1200},
}

// Narrative scores enriched content for story quality while checking that
// the technical substance of the baseline survived.
type Narrative struct{}

func (Narrative) Name() string { return RubricNarrative }

func (Narrative) Floors() map[string]float64 { return floorsOf(narrativeCriteria) }

var narrativeCriteria = []criterion{
	{key: "technical_preservation", title: "Technical Preservation", points: 30, floor: floor(25), score: narrativeTechnicalPreservation},
	{key: "complexity_alignment", title: "Complexity Alignment", points: 20, score: narrativeComplexity},
	{key: "scenario_quality", title: "Scenario Quality", points: 20, score: narrativeScenario},
	{key: "aha_moment", title: "Aha Moment", points: 20, floor: floor(15), score: narrativeAha},
	{key: "narrative_flow", title: "Narrative Flow", points: 10, score: narrativeFlow},
}

func (Narrative) Evaluate(in Input) types.EvaluationReport {
	if blank(in.Content) {
		return minimalWithCriteria(RubricNarrative, NarrativeThreshold, "Narrative content is empty; enrich the compiled answer.", narrativeCriteria)
	}
	report := score(RubricNarrative, NarrativeThreshold, in, narrativeCriteria, nil)

	for _, c := range report.Criteria {
		switch c.Key {
		case "technical_preservation":
			if c.Score < 25 {
				report.Feedback = append(report.Feedback, "CRITICAL: Technical facts or citations were altered or removed")
			} else if c.Score < 28 {
				report.Feedback = append(report.Feedback, "Some citations missing or technical details diluted")
			}
		case "complexity_alignment":
			if c.Score < 15 {
				report.Feedback = append(report.Feedback, fmt.Sprintf("Content complexity doesn't match '%s' level", complexityOf(in)))
			}
		case "scenario_quality":
			if c.Score < 15 {
				report.Feedback = append(report.Feedback, "Scenario needs improvement: ensure one character, one problem, one solution")
			}
		case "aha_moment":
			if c.Score < 15 {
				report.Feedback = append(report.Feedback, "CRITICAL: 'Micro fix, macro impact' moment is unclear or missing")
			}
		case "narrative_flow":
			if c.Score < 7 {
				report.Feedback = append(report.Feedback, "Narrative flow is choppy or disjointed")
			}
		}
	}
	report.Metrics["words"] = float64(wordCount(in.Content))
	return report
}

func complexityOf(in Input) string {
	if _, ok := wordRange[in.Complexity]; ok {
		return in.Complexity
	}
	return ComplexityStandard
}

func narrativeTechnicalPreservation(in Input) (float64, string) {
	pts := 30.0
	var notes []string

	if missing := missingIDs(in.Baseline, in.Content); len(missing) > 0 {
		pts -= minf(10, 2*float64(len(missing)))
		notes = append(notes, fmt.Sprintf("missing citations %s", strings.Join(missing, ", ")))
	}
	if strings.Count(in.Content, "```") < strings.Count(in.Baseline, "```") {
		pts -= 5
		notes = append(notes, "code blocks dropped")
	}
	if rate, ok := termPreservation(in.Baseline, in.Content, false); ok && rate < 0.7 {
		pts -= 5
		notes = append(notes, fmt.Sprintf("term preservation %.2f", rate))
	}
	return pts, rationale(notes, "technical content preserved")
}

func narrativeComplexity(in Input) (float64, string) {
	level := complexityOf(in)
	bounds := wordRange[level]
	words := wordCount(in.Content)
	pts := 20.0
	var notes []string

	switch {
	case words < bounds[0]:
		pts -= 10
		notes = append(notes, fmt.Sprintf("%d words, %s expects at least %d", words, level, bounds[0]))
	case words > bounds[1]:
		pts -= 5
		notes = append(notes, fmt.Sprintf("%d words, %s expects at most %d", words, level, bounds[1]))
	}

	if level == ComplexityCritical {
		n := countAny(strings.ToLower(in.Content), "first", "then", "next", "finally",
			"step", "realize", "understand", "discover", "why", "because", "therefore")
		if n < 5 {
			pts -= 5
			notes = append(notes, fmt.Sprintf("%d reasoning cues", n))
		}
	}
	return pts, rationale(notes, fmt.Sprintf("%d words fits %s", words, level))
}

// characterCues mark a named or pronoun-led protagonist.
var characterCues = []string{"she ", "he ", "they ", "priya", "maya", "alex", "sam"}

func narrativeScenario(in Input) (float64, string) {
	pts := 20.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if !containsAny(lower, characterCues...) {
		pts -= 7
		notes = append(notes, "no character")
	}
	if !containsAny(lower, "problem", "issue", "error", "broke", "failed", "stuck",
		"confused", "wondering", "struggled", "hit", "faced") {
		pts -= 7
		notes = append(notes, "no problem")
	}
	if !containsAny(lower, "solution", "fix", "solved", "realized", "discovered",
		"learned", "understood", "aha", "moment", "clicked") {
		pts -= 6
		notes = append(notes, "no resolution")
	}
	return pts, rationale(notes, "character, problem, and resolution present")
}

func narrativeAha(in Input) (float64, string) {
	n := countAny(strings.ToLower(in.Content), "aha", "moment", "realized", "clicked", "suddenly",
		"micro fix", "macro", "small", "big", "clarity",
		"unlock", "insight", "revelation", "discovered")
	switch {
	case n == 0:
		return 5, "no aha moment"
	case n < 2:
		return 12, "weak aha moment"
	}
	return 20, fmt.Sprintf("%d aha indicators", n)
}

func narrativeFlow(in Input) (float64, string) {
	pts := 10.0
	var notes []string

	if p := len(paragraphs(in.Content)); p < 3 {
		pts -= 3
		notes = append(notes, fmt.Sprintf("%d paragraphs", p))
	}
	sentences := len(strings.Split(in.Content, ". "))
	if sentences > 5 {
		transitions := countAny(strings.ToLower(in.Content), "however", "but", "then", "next",
			"first", "second", "finally", "meanwhile", "therefore", "because")
		if float64(transitions) < float64(sentences)*0.1 {
			pts -= 2
			notes = append(notes, "weak transitions")
		}
	}
	return pts, rationale(notes, "flows between paragraphs")
}
