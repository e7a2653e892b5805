// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package evaluate scores stage content against fixed, weighted rubrics.
// Every evaluator is a pure function of its Input: identical text always
// yields an identical report.
package evaluate

import (
	"strings"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Rubric names.
const (
	RubricTechnical  = "technical"
	RubricStructural = "structural"
	RubricCompiler   = "compiler"
	RubricNarrative  = "narrative"
	RubricBrand      = "brand"
)

// Complexity levels used by the narrative rubric.
const (
	ComplexitySimple   = "simple"
	ComplexityStandard = "standard"
	ComplexityCritical = "critical"
)

// Evaluator scores content against one rubric.
type Evaluator interface {
	Name() string
	Evaluate(in Input) types.EvaluationReport
}

// Floored is implemented by rubrics with hard per-criterion floors. A
// report from such a rubric can fail on a floor even above its threshold.
type Floored interface {
	Floors() map[string]float64
}

// HasFloors reports whether e declares at least one hard floor.
func HasFloors(e Evaluator) bool {
	f, ok := e.(Floored)
	return ok && len(f.Floors()) > 0
}

func floorsOf(criteria []criterion) map[string]float64 {
	out := make(map[string]float64)
	for _, c := range criteria {
		if c.floor != nil {
			out[c.key] = *c.floor
		}
	}
	return out
}

// Input is everything an evaluator may look at.
type Input struct {
	// Content is the text under evaluation.
	Content string

	// Baseline is the earlier stage's text the content was derived from.
	Baseline string

	Question  string
	Docs      []types.RetrievalResult
	Citations []types.Citation

	// Complexity is simple, standard, or critical.
	Complexity string

	// BaselineScore is the technical score of the draft.
	BaselineScore float64
}

// criterion is one weighted rubric line. score returns points earned, not a
// fraction.
type criterion struct {
	key    string
	title  string
	points float64
	floor  *float64
	score  func(in Input) (float64, string)
}

func floor(v float64) *float64 { return &v }

// MinimalFailure builds the failing report returned for content an
// evaluator cannot score. Criteria are zeroed but carry no floors, so the
// report asks for a retry rather than tripping an abort.
func MinimalFailure(rubric string, threshold float64, reason string) types.EvaluationReport {
	return types.EvaluationReport{
		Rubric:    rubric,
		Threshold: threshold,
		Passed:    false,
		Feedback:  []string{reason},
		Metrics:   map[string]float64{},
	}
}

func minimalWithCriteria(rubric string, threshold float64, reason string, criteria []criterion) types.EvaluationReport {
	r := MinimalFailure(rubric, threshold, reason)
	for _, c := range criteria {
		r.Criteria = append(r.Criteria, types.CriterionScore{Key: c.key, MaxPoints: c.points, Rationale: "not scored"})
	}
	return r
}

// score runs every criterion and totals the report. Passing requires the
// threshold and every floor. feedbackBelow, when non-nil, decides whether a
// criterion's rationale becomes feedback.
func score(rubric string, threshold float64, in Input, criteria []criterion, feedbackBelow func(c criterion, got float64) bool) types.EvaluationReport {
	report := types.EvaluationReport{
		Rubric:    rubric,
		Threshold: threshold,
		Metrics:   map[string]float64{},
	}
	for _, c := range criteria {
		got, rationale := c.score(in)
		got = clamp(got, 0, c.points)
		cs := types.CriterionScore{
			Key:       c.key,
			Score:     round2(got),
			MaxPoints: c.points,
			Rationale: rationale,
		}
		if c.floor != nil {
			f := *c.floor
			cs.Floor = &f
		}
		report.Criteria = append(report.Criteria, cs)
		report.TotalScore += cs.Score
		if feedbackBelow != nil && feedbackBelow(c, got) {
			report.Feedback = append(report.Feedback, "Improve "+strings.ToLower(c.title)+": "+rationale)
		}
	}
	report.TotalScore = round2(report.TotalScore)
	report.Passed = report.TotalScore >= threshold && !report.FloorViolated()
	return report
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	if v < 0 {
		return -round2(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}

func containsAny(lower string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// countAny counts how many of phrases occur in lower at least once.
func countAny(lower string, phrases ...string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			n++
		}
	}
	return n
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// paragraphs splits on blank lines and drops empty blocks.
func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
