// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// BrandThreshold is the pass mark for polished, retrieval-ready content.
const BrandThreshold = 85.0

// Brand scores final content for voice (honest, reflective, clear) and for
// a structure that chat retrieval can index.
type Brand struct{}

func (Brand) Name() string { return RubricBrand }

func (Brand) Floors() map[string]float64 { return floorsOf(brandCriteria) }

var brandCriteria = []criterion{
	{key: "brand_voice", title: "Brand Voice", points: 25, floor: floor(20), score: brandVoice},
	{key: "keyword_integration", title: "Keyword Integration", points: 20, score: brandKeywords},
	{key: "rag_structure", title: "RAG Structure", points: 20, score: brandRAGStructure},
	{key: "quality_preservation", title: "Quality Preservation", points: 20, score: brandQualityPreservation},
	{key: "uniqueness", title: "Uniqueness", points: 15, score: brandUniqueness},
}

var brandFeedback = map[string]struct {
	below float64
	text  string
}{
	"brand_voice":          {20, "CRITICAL: Brand voice (honest, reflective, clear) is weak or missing"},
	"keyword_integration":  {15, "Keywords missing or poorly integrated for RAG retrieval"},
	"rag_structure":        {15, "Content structure not optimized for RAG/chatbot retrieval"},
	"quality_preservation": {15, "Quality degraded from technical baseline"},
	"uniqueness":           {10, "Content feels generic, lacks distinctiveness"},
}

func (Brand) Evaluate(in Input) types.EvaluationReport {
	if blank(in.Content) {
		return minimalWithCriteria(RubricBrand, BrandThreshold, "Polished content is empty; apply the brand polish again.", brandCriteria)
	}
	report := score(RubricBrand, BrandThreshold, in, brandCriteria, nil)
	for _, c := range report.Criteria {
		if fb := brandFeedback[c.Key]; c.Score < fb.below {
			report.Feedback = append(report.Feedback, fb.text)
		}
	}
	report.Metrics["baseline_score"] = in.BaselineScore
	return report
}

func brandVoice(in Input) (float64, string) {
	pts := 25.0
	lower := strings.ToLower(in.Content)
	var notes []string

	switch n := countAny(lower, "complex", "confusing", "tricky", "subtle", "nuanced",
		"at first", "initially", "seems", "can be",
		"important to understand", "worth noting"); {
	case n == 0:
		pts -= 8
		notes = append(notes, "not honest about complexity")
	case n < 2:
		pts -= 4
		notes = append(notes, "little acknowledgement of complexity")
	}

	if !strings.Contains(in.Content, "?") || !containsAny(lower, "think about", "consider", "reflect", "imagine",
		"what if", "how might", "when was", "have you") {
		pts -= 8
		notes = append(notes, "no reflective question")
	}

	switch n := countAny(lower, "micro", "small fix", "small change", "one command", "one line",
		"clarity", "clear", "simple", "straightforward",
		"aha", "moment", "clicked", "realized"); {
	case n == 0:
		pts -= 9
		notes = append(notes, "no clarity language")
	case n < 2:
		pts -= 4
		notes = append(notes, "little clarity language")
	}
	return pts, rationale(notes, "honest, reflective, clear")
}

func brandKeywords(in Input) (float64, string) {
	pts := 20.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if !strings.Contains(lower, "**keywords:**") {
		pts -= 8
		notes = append(notes, "no keywords metadata")
	}
	if !strings.Contains(lower, "**quick answer") {
		pts -= 7
		notes = append(notes, "no quick answer")
	}
	if n := len(backtickTermRe.FindAllString(in.Content, -1)); n < 5 {
		pts -= 5
		notes = append(notes, fmt.Sprintf("%d backtick terms", n))
	}
	return pts, rationale(notes, "keywords integrated")
}

func brandRAGStructure(in Input) (float64, string) {
	pts := 20.0
	var notes []string

	if strings.Count(in.Content, "**") < 4 {
		pts -= 7
		notes = append(notes, "too few bold sections")
	}
	if !strings.Contains(strings.ToLower(in.Content), "**related concepts") {
		pts -= 6
		notes = append(notes, "no related concepts")
	}
	if n := len(paragraphs(in.Content)); n < 4 {
		pts -= 4
		notes = append(notes, fmt.Sprintf("%d paragraphs", n))
	}
	if strings.Count(in.Content, "```") < 2 {
		pts -= 3
		notes = append(notes, "no code block")
	}
	return pts, rationale(notes, "scannable sections")
}

func brandQualityPreservation(in Input) (float64, string) {
	pts := 20.0
	var notes []string

	if n := wordCount(in.Content); n > 1500 {
		pts -= 5
		notes = append(notes, fmt.Sprintf("%d words", n))
	}
	if n := citation.Count(in.Content); n < 3 {
		pts -= 8
		notes = append(notes, fmt.Sprintf("%d citations", n))
	}
	if !strings.Contains(in.Content, "```") {
		pts -= 7
		notes = append(notes, "no code examples")
	}
	return pts, rationale(notes, "quality kept")
}

func brandUniqueness(in Input) (float64, string) {
	pts := 15.0
	lower := strings.ToLower(in.Content)
	var notes []string

	if !containsAny(lower, characterCues...) {
		pts -= 5
		notes = append(notes, "no character")
	}
	if n := countAny(lower, "realized", "discovered", "moment", "clicked",
		"struggled", "wondered", "tried", "found"); n < 2 {
		pts -= 5
		notes = append(notes, "weak storytelling")
	}
	if !containsAny(lower, "micro fix", "macro", "small fix", "big clarity",
		"aha moment", "clicked", "unlocked") {
		pts -= 5
		notes = append(notes, "no brand language")
	}
	return pts, rationale(notes, "distinctive")
}
