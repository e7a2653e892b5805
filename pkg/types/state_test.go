// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floorPtr(v float64) *float64 { return &v }

func TestPipelineState_WithMethodsDoNotMutateReceiver(t *testing.T) {
	base := NewPipelineState("run-1", "What is a list?", []Message{{Role: "user", Content: "hi"}})
	base = base.WithStageContent(StageDraft, "draft text")

	next := base.WithStageContent(StageCompile, "compiled").
		WithRetry(StageDraft).
		WithEvaluation(StageDraft, EvaluationReport{Rubric: "technical", TotalScore: 90}).
		WithAbort("floor", StageCompile).
		WithFinal(StageDraft)

	assert.Equal(t, map[string]string{StageDraft: "draft text"}, base.StageContent)
	assert.Empty(t, base.RetryCounters)
	assert.Empty(t, base.Evaluations)
	assert.Nil(t, base.Abort)
	assert.Empty(t, base.FinalStage)

	assert.Equal(t, "compiled", next.StageContent[StageCompile])
	assert.Equal(t, 1, next.RetryCounters[StageDraft])
	require.NotNil(t, next.Abort)
	assert.Equal(t, StageCompile, next.Abort.AtStage)
	assert.Equal(t, "draft text", next.Answer())
}

func TestPipelineState_CloneIsDeep(t *testing.T) {
	score := 0.2
	s := NewPipelineState("run-1", "q", nil)
	s.ResearchDocs = []RetrievalResult{{ID: "doc-1", DocumentMetadata: map[string]string{"k": "v"}}}
	s.Citations = []Citation{{ID: "doc-1", RelevanceScore: &score}}
	s.Evaluations["draft"] = EvaluationReport{
		Criteria: []CriterionScore{{Key: "a", Floor: floorPtr(5)}},
		Feedback: []string{"x"},
	}

	c := s.Clone()
	c.ResearchDocs[0].DocumentMetadata["k"] = "changed"
	*c.Citations[0].RelevanceScore = 0.9
	c.Evaluations["draft"].Feedback[0] = "changed"
	*c.Evaluations["draft"].Criteria[0].Floor = 1

	assert.Equal(t, "v", s.ResearchDocs[0].DocumentMetadata["k"])
	assert.Equal(t, 0.2, *s.Citations[0].RelevanceScore)
	assert.Equal(t, "x", s.Evaluations["draft"].Feedback[0])
	assert.Equal(t, 5.0, *s.Evaluations["draft"].Criteria[0].Floor)
}

func TestPipelineState_WithAbortKeepsFirst(t *testing.T) {
	s := NewPipelineState("run-1", "q", nil).
		WithAbort("first", StageCompile).
		WithAbort("second", StageEnrich)

	require.True(t, s.Aborted())
	assert.Equal(t, "first", s.Abort.Reason)
}

func TestEvaluationReport_FloorViolated(t *testing.T) {
	tests := []struct {
		name     string
		criteria []CriterionScore
		want     bool
	}{
		{"no floors", []CriterionScore{{Key: "a", Score: 0}}, false},
		{"floor met", []CriterionScore{{Key: "a", Score: 28, Floor: floorPtr(28)}}, false},
		{"floor missed", []CriterionScore{{Key: "a", Score: 27.5, Floor: floorPtr(28)}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := EvaluationReport{Criteria: tt.criteria}
			assert.Equal(t, tt.want, r.FloorViolated())
		})
	}
}
