// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Gate selects which set of structural minimums applies.
type Gate int

const (
	// GateTechnical checks a draft: code, citations, inline terms.
	GateTechnical Gate = 1

	// GateStructure checks a structured rewrite: headings, paragraphs,
	// code preserved.
	GateStructure Gate = 2
)

// MarkdownStats counts the markdown elements the structural gates check.
type MarkdownStats struct {
	PythonBlocks int
	CodeSpans    int
	Headings     int
	Paragraphs   int
	Citations    int
}

var md = goldmark.New()

// Measure parses content as CommonMark and counts its elements.
func Measure(content string) MarkdownStats {
	src := []byte(content)
	doc := md.Parser().Parse(text.NewReader(src))

	stats := MarkdownStats{Citations: citation.Count(content)}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.FencedCodeBlock:
			lang := strings.ToLower(string(node.Language(src)))
			if lang == "python" || lang == "py" {
				stats.PythonBlocks++
			}
		case *ast.CodeSpan:
			stats.CodeSpans++
		case *ast.Heading:
			stats.Headings++
		case *ast.Paragraph:
			stats.Paragraphs++
		}
		return ast.WalkContinue, nil
	})
	return stats
}

type minimum struct {
	key   string
	label string
	min   int
	value func(MarkdownStats) int
}

var gateMinimums = map[Gate][]minimum{
	GateTechnical: {
		{"python_code_blocks", "python code blocks", 3, func(s MarkdownStats) int { return s.PythonBlocks }},
		{"citations", "citations", 10, func(s MarkdownStats) int { return s.Citations }},
		{"code_spans", "technical terms in backticks", 10, func(s MarkdownStats) int { return s.CodeSpans }},
	},
	GateStructure: {
		{"headings", "headings", 5, func(s MarkdownStats) int { return s.Headings }},
		{"paragraphs", "paragraphs", 8, func(s MarkdownStats) int { return s.Paragraphs }},
		{"python_code_blocks", "python code blocks", 3, func(s MarkdownStats) int { return s.PythonBlocks }},
	},
}

// Structural is a binary gate over markdown element counts. Each minimum is
// a one-point criterion and the threshold is the number of minimums, so the
// report passes only when every minimum is met.
type Structural struct {
	Gate Gate
}

func (s Structural) Name() string { return RubricStructural }

func (s Structural) Evaluate(in Input) types.EvaluationReport {
	mins, ok := gateMinimums[s.Gate]
	if !ok {
		mins = gateMinimums[GateStructure]
	}
	threshold := float64(len(mins))
	if blank(in.Content) {
		return MinimalFailure(RubricStructural, threshold, "Content is empty; nothing to structure.")
	}

	stats := Measure(in.Content)
	report := types.EvaluationReport{
		Rubric:    RubricStructural,
		Threshold: threshold,
		Metrics: map[string]float64{
			"gate":               float64(s.Gate),
			"python_code_blocks": float64(stats.PythonBlocks),
			"code_spans":         float64(stats.CodeSpans),
			"headings":           float64(stats.Headings),
			"paragraphs":         float64(stats.Paragraphs),
			"citations":          float64(stats.Citations),
		},
	}
	for _, m := range mins {
		got := m.value(stats)
		cs := types.CriterionScore{
			Key:       m.key,
			MaxPoints: 1,
			Rationale: fmt.Sprintf("found %d, need %d", got, m.min),
		}
		if got >= m.min {
			cs.Score = 1
		} else {
			report.Feedback = append(report.Feedback, fmt.Sprintf("Need %d+ %s, found %d", m.min, m.label, got))
		}
		report.Criteria = append(report.Criteria, cs)
		report.TotalScore += cs.Score
	}
	report.Passed = report.TotalScore >= threshold
	return report
}
