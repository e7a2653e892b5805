// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

const strongDraft = "Let's solve the problem of sorting records in a Python system [doc-1].\n" +
	"First, consider how the built-in sort gives a stable solution for your data [doc-2].\n" +
	"1. Import the module you need and define a key function [doc-1].\n" +
	"2. Compare the results and explain each design choice together [doc-2].\n\n" +
	"```python\nimport operator\ndef by_age(person):\n    return person[\"age\"]\nclass Person:\n    pass\n```\n"

func twoDocs() []types.RetrievalResult {
	return []types.RetrievalResult{{ID: "doc-1", DocumentID: "a"}, {ID: "doc-2", DocumentID: "b"}}
}

func TestTechnical_StrongDraftPasses(t *testing.T) {
	in := Input{Content: strongDraft, Question: "How do I sort records?", Docs: twoDocs()}
	report := Technical{}.Evaluate(in)

	assert.Equal(t, RubricTechnical, report.Rubric)
	assert.InDelta(t, 100, report.TotalScore, 1e-9)
	assert.True(t, report.Passed)
	assert.Empty(t, report.Feedback)
	assert.Len(t, report.Criteria, 10)
	assert.Equal(t, 1.0, report.Metrics["coverage"])
	assert.Equal(t, 1.0, report.Metrics["exec_ok"])
}

func TestTechnical_GatesFail(t *testing.T) {
	in := Input{Content: "Lists are handy.", Question: "What is a tuple", Docs: twoDocs()}
	report := Technical{}.Evaluate(in)

	assert.False(t, report.Passed)
	assert.Equal(t, 0.0, report.Metrics["coverage"])
	assert.Equal(t, 0.0, report.Metrics["exec_ok"])
	assert.Contains(t, report.Feedback, "Add runnable Python snippets or detail execution expectations.")
	assert.True(t, hasPrefix(report.Feedback, "Coverage below threshold"))
	assert.True(t, hasPrefix(report.Feedback, "Improve groundedness & citation:"))
}

func TestTechnical_Deterministic(t *testing.T) {
	in := Input{Content: strongDraft + "\nMore text [web-1].", Docs: twoDocs()}
	assert.Equal(t, Technical{}.Evaluate(in), Technical{}.Evaluate(in))
}

func TestTechnicalCriteria(t *testing.T) {
	tests := []struct {
		name string
		fn   func(techSignals, float64) (float64, string)
		s    techSignals
		w    float64
		want float64
	}{
		{"groundedness half density", groundedness, techSignals{coverage: 1, density: 0.75}, 20, 15},
		{"correctness capped by error", technicalCorrectness, techSignals{lower: "def class import error"}, 15, 9},
		{"correctness partial", technicalCorrectness, techSignals{lower: "use yield"}, 15, 5},
		{"psw two of three", pswActionability, techSignals{lower: "the problem and its benefit"}, 10, 20.0 / 3},
		{"retrieval without citations", retrievalQuality, techSignals{coverage: 1}, 10, 4},
		{"no sentences", clarity, techSignals{content: "   "}, 5, 2},
		{"long sentences", clarity, techSignals{content: strings.Repeat("word ", 40) + "."}, 5, 3.5},
		{"scaffolding numbered", selfPacedScaffolding, techSignals{content: "intro\n  3. do it"}, 10, 10},
		{"scaffolding missing", selfPacedScaffolding, techSignals{content: "6. too far"}, 10, 5},
		{"negative language", peopleFirstLanguage, techSignals{lower: "please, lazy reader"}, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rationale := tt.fn(tt.s, tt.w)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.NotEmpty(t, rationale)
		})
	}
}

func structuredDoc(citations, spans int) string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "## Section %d\n\nParagraph %d text.\n\n", i, i)
	}
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "Extra paragraph %d.\n\n```python\nprint(%d)\n```\n\n", i, i)
	}
	for i := 1; i <= citations; i++ {
		fmt.Fprintf(&b, "Claim [doc-%d].\n\n", i)
	}
	for i := 0; i < spans; i++ {
		fmt.Fprintf(&b, "Term `t%d`.\n\n", i)
	}
	return b.String()
}

func TestMeasure(t *testing.T) {
	stats := Measure(structuredDoc(2, 4))
	assert.Equal(t, 3, stats.PythonBlocks)
	assert.Equal(t, 5, stats.Headings)
	assert.Equal(t, 4, stats.CodeSpans)
	assert.Equal(t, 2, stats.Citations)
	assert.Equal(t, 5+3+2+4, stats.Paragraphs)
}

func TestStructural_Gates(t *testing.T) {
	doc := structuredDoc(0, 5)

	gate2 := Structural{Gate: GateStructure}.Evaluate(Input{Content: doc})
	assert.True(t, gate2.Passed)
	assert.InDelta(t, 3, gate2.TotalScore, 1e-9)
	assert.Empty(t, gate2.Feedback)

	gate1 := Structural{Gate: GateTechnical}.Evaluate(Input{Content: doc})
	assert.False(t, gate1.Passed)
	assert.InDelta(t, 1, gate1.TotalScore, 1e-9)
	assert.Equal(t, []string{
		"Need 10+ citations, found 0",
		"Need 10+ technical terms in backticks, found 5",
	}, gate1.Feedback)

	full := Structural{Gate: GateTechnical}.Evaluate(Input{Content: structuredDoc(10, 10)})
	assert.True(t, full.Passed)
}

const compilerBaseline = "Use `sorted` [doc-1].\n```python\nsorted(x)\n```"

const compiledGood = "The challenge: sorting data feels harder than it is [doc-1].\n\n" +
	"Here is how it works: `sorted` returns a new list.\n\n" +
	"```python\nsorted(x)\n```\n\n" +
	"One small fix brings big clarity. Consider the key argument. Consider stability. Consider reverse order.\n\n" +
	"## Real-World Examples\n\n" +
	"For example, in production services the industry default improves readability.\n\n" +
	"## Reflection\n\n" +
	"What would you sort next?"

func TestCompiler_FullMarks(t *testing.T) {
	report := Compiler{}.Evaluate(Input{Content: compiledGood, Baseline: compilerBaseline})
	assert.InDelta(t, 100, report.TotalScore, 1e-9)
	assert.True(t, report.Passed)
	assert.Empty(t, report.Feedback)
}

func TestCompiler_TechnicalFloor(t *testing.T) {
	baseline := "Use `sorted` and `list.sort` [doc-1] [doc-2] [doc-3]."
	report := Compiler{}.Evaluate(Input{Content: "Nothing kept.", Baseline: baseline})

	tech, ok := report.Criterion("technical_preservation")
	require.True(t, ok)
	assert.InDelta(t, 19, tech.Score, 1e-9)
	assert.True(t, report.FloorViolated())
	assert.False(t, report.Passed)
	assert.Contains(t, report.Feedback, "CRITICAL: Technical facts or citations were altered or removed")
}

func TestCompilerCriteria(t *testing.T) {
	got, _ := compilerPSWStructure(Input{Content: "Problem: x. System: y. Win: z."})
	assert.InDelta(t, 0, got, 1e-9)

	got, _ = compilerMicroFix(Input{Content: "a key insight"})
	assert.InDelta(t, 12, got, 1e-9)

	got, _ = compilerReflective(Input{Content: "Think about it."})
	assert.InDelta(t, 5, got, 1e-9)

	got, _ = compilerTechnicalPreservation(Input{Content: "```a```", Baseline: "```a``` ```b``` ```c```"})
	assert.InDelta(t, 22, got, 1e-9)
}

func TestNarrative_AhaFloor(t *testing.T) {
	report := Narrative{}.Evaluate(Input{Content: "Plain words here.", Baseline: "Plain words here.", Complexity: ComplexitySimple})

	assert.Equal(t, []string{"aha_moment"}, report.ViolatedFloors())
	assert.False(t, report.Passed)
	assert.Contains(t, report.Feedback, "CRITICAL: 'Micro fix, macro impact' moment is unclear or missing")
	assert.Contains(t, report.Feedback, "Content complexity doesn't match 'simple' level")
}

func TestNarrativeCriteria(t *testing.T) {
	tests := []struct {
		name string
		fn   func(Input) (float64, string)
		in   Input
		want float64
	}{
		{"too long for simple", narrativeComplexity, Input{Content: strings.Repeat("w ", 600), Complexity: ComplexitySimple}, 15},
		{"critical without reasoning", narrativeComplexity, Input{Content: strings.Repeat("w ", 700), Complexity: ComplexityCritical}, 15},
		{"unknown complexity uses standard", narrativeComplexity, Input{Content: strings.Repeat("w ", 450), Complexity: "odd"}, 20},
		{"full scenario", narrativeScenario, Input{Content: "Priya was stuck until the fix clicked."}, 20},
		{"no character", narrativeScenario, Input{Content: "Build failed; a fix landed."}, 13},
		{"strong aha", narrativeAha, Input{Content: "The aha moment arrived."}, 20},
		{"missing citations", narrativeTechnicalPreservation, Input{Content: "x", Baseline: "[doc-1] [doc-2]"}, 26},
		{"few paragraphs", narrativeFlow, Input{Content: "One.\n\nTwo."}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := tt.fn(tt.in)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestBrand_VoiceFloor(t *testing.T) {
	report := Brand{}.Evaluate(Input{Content: "Text.", BaselineScore: 91})

	voice, ok := report.Criterion("brand_voice")
	require.True(t, ok)
	assert.InDelta(t, 0, voice.Score, 1e-9)
	assert.True(t, report.FloorViolated())
	assert.Equal(t, 91.0, report.Metrics["baseline_score"])
	assert.Contains(t, report.Feedback, "CRITICAL: Brand voice (honest, reflective, clear) is weak or missing")
}

func TestBrandCriteria(t *testing.T) {
	content := "**Quick Answer:** use `a` `b` `c` `d` `e`.\n\n**Keywords:** sorting"
	got, _ := brandKeywords(Input{Content: content})
	assert.InDelta(t, 20, got, 1e-9)

	got, _ = brandQualityPreservation(Input{Content: "[doc-1] [web-1] [doc-2]\n```py\n```"})
	assert.InDelta(t, 20, got, 1e-9)

	got, _ = brandUniqueness(Input{Content: "Maya realized it clicked."})
	assert.InDelta(t, 15, got, 1e-9)
}

func TestBlankContentYieldsMinimalFailure(t *testing.T) {
	for _, e := range []Evaluator{Technical{}, Structural{Gate: GateStructure}, Compiler{}, Narrative{}, Brand{}} {
		t.Run(e.Name(), func(t *testing.T) {
			report := e.Evaluate(Input{Content: "  \n "})
			assert.False(t, report.Passed)
			assert.False(t, report.FloorViolated())
			assert.Len(t, report.Feedback, 1)
			assert.Equal(t, e.Name(), report.Rubric)
		})
	}
}

func TestPassedMatchesThresholdAndFloors(t *testing.T) {
	inputs := []Input{
		{Content: compiledGood, Baseline: compilerBaseline},
		{Content: "Nothing kept.", Baseline: compilerBaseline},
		{Content: strongDraft, Baseline: strongDraft, Complexity: ComplexityStandard},
	}
	for _, e := range []Evaluator{Compiler{}, Narrative{}, Brand{}} {
		for _, in := range inputs {
			r := e.Evaluate(in)
			var sum float64
			for _, c := range r.Criteria {
				sum += c.Score
			}
			assert.InDelta(t, sum, r.TotalScore, 1e-6)
			assert.Equal(t, r.TotalScore >= r.Threshold && !r.FloorViolated(), r.Passed)
		}
	}
}

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		q    string
		want string
	}{
		{"What is print?", ComplexitySimple},
		{"Why use virtual environments?", ComplexityCritical},
		{"Explain how a decorator wraps a function", ComplexityCritical},
		{"How does pip resolve packages", ComplexityStandard},
	}
	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyComplexity(tt.q))
		})
	}
	assert.Equal(t, ComplexityCritical, ResolveComplexity(ComplexityCritical, "What is print?"))
	assert.Equal(t, ComplexitySimple, ResolveComplexity("auto", "What is print?"))
}

func TestShouldEnrich(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		score     float64
		threshold float64
		want      bool
	}{
		{"simple and strong draft skips", ComplexitySimple, 95, 90, false},
		{"simple at the threshold skips", ComplexitySimple, 90, 90, false},
		{"simple and weak draft enriches", ComplexitySimple, 75, 90, true},
		{"standard always enriches", ComplexityStandard, 95, 90, true},
		{"critical always enriches", ComplexityCritical, 95, 90, true},
		{"zero threshold disables the skip", ComplexitySimple, 100, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldEnrich(tt.level, tt.score, tt.threshold))
		})
	}
}

func TestHasFloors(t *testing.T) {
	assert.False(t, HasFloors(Technical{}))
	assert.False(t, HasFloors(Structural{Gate: GateStructure}))
	assert.True(t, HasFloors(Compiler{}))
	assert.True(t, HasFloors(Narrative{}))
	assert.True(t, HasFloors(Brand{}))

	assert.Equal(t, map[string]float64{"technical_preservation": 28, "micro_fix_clarity": 15}, Compiler{}.Floors())
	assert.Equal(t, map[string]float64{"brand_voice": 20}, Brand{}.Floors())
}

func TestBank(t *testing.T) {
	b := NewBank()
	assert.Equal(t, RubricTechnical, b.For(types.StageDraft).Name())
	assert.Equal(t, Structural{Gate: GateStructure}, b.For(types.StageStructure))
	assert.Equal(t, Structural{Gate: GateTechnical}, b.Precheck(types.StageStructure))
	assert.Nil(t, b.Precheck(types.StageDraft))
	assert.Equal(t, RubricNarrative, b.For(types.StageEnrich).Name())
	assert.Equal(t, RubricBrand, b.For(types.StagePolish).Name())

	b = NewBank(WithStage(types.StageEnrich, Brand{}))
	assert.Equal(t, RubricBrand, b.For(types.StageEnrich).Name())

	_, err := ByName("poetry")
	assert.Error(t, err)
	e, err := ByName(RubricCompiler)
	require.NoError(t, err)
	assert.Equal(t, RubricCompiler, e.Name())
}

func hasPrefix(feedback []string, prefix string) bool {
	for _, f := range feedback {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}
