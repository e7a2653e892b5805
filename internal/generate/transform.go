// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/evaluate"
	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Step is one downstream rewrite: it reads the content of Input and writes
// its own stage key.
type Step struct {
	Stage       string
	Input       string
	Temperature float64
	template    *template.Template
}

// StructureStep formats the draft as sectioned markdown.
func StructureStep(temperature float64) Step {
	return Step{Stage: types.StageStructure, Input: types.StageDraft, Temperature: temperature, template: structureTmpl}
}

// CompileStep rewrites content into a problem, system, win arc.
func CompileStep(temperature float64) Step {
	return Step{Stage: types.StageCompile, Input: types.StageStructure, Temperature: temperature, template: compileTmpl}
}

// PolishStep applies the brand voice and retrieval structure to the final
// answer.
func PolishStep(temperature float64) Step {
	return Step{Stage: types.StagePolish, Input: types.StageEnrich, Temperature: temperature, template: polishTmpl}
}

// EnrichStep turns compiled content into a short learning narrative.
func EnrichStep(temperature float64) Step {
	return Step{Stage: types.StageEnrich, Input: types.StageCompile, Temperature: temperature, template: enrichTmpl}
}

// Transformer runs rewrite steps through a chat provider.
type Transformer struct {
	Chat    ChatProvider
	Timeout time.Duration
	Logger  *zap.Logger

	// Complexity sets the enrich length target: simple, standard, or
	// critical. Any other value classifies each question.
	Complexity string
}

// Transform rewrites the step's input content. On a retry the previous
// attempt and the evaluator's feedback go into the instruction.
func (t *Transformer) Transform(ctx context.Context, state types.PipelineState, step Step, feedback []string) (types.PipelineState, error) {
	log := t.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if step.template == nil {
		return state, fmt.Errorf("step %s has no instruction template", step.Stage)
	}

	input, ok := state.StageContent[step.Input]
	if !ok || strings.TrimSpace(input) == "" {
		return state, fmt.Errorf("step %s: input stage %s has no content", step.Stage, step.Input)
	}

	data := stepData{
		Question:   state.Question,
		Content:    input,
		Citations:  citation.ExtractIDs(input),
		Feedback:   feedback,
		Complexity: evaluate.ResolveComplexity(t.Complexity, state.Question),
	}
	if len(feedback) > 0 {
		data.Previous = state.StageContent[step.Stage]
	}

	instruction, err := render(step.template, data)
	if err != nil {
		return state, err
	}
	msgs := []types.Message{
		{Role: "system", Content: instruction},
		{Role: "user", Content: fmt.Sprintf("Question: %s\n\nContent:\n%s", state.Question, input)},
	}

	log.Info("generate: transforming",
		zap.String("run_id", state.RunID),
		zap.String("stage", step.Stage),
		zap.String("input", step.Input),
		zap.Float64("temperature", step.Temperature),
		zap.Int("feedback", len(feedback)),
	)

	callCtx, cancel := httputil.WithTimeout(ctx, t.Timeout)
	defer cancel()
	out, err := t.Chat.Complete(callCtx, msgs, step.Temperature)
	if err != nil {
		return state, fmt.Errorf("running %s step: %w", step.Stage, err)
	}
	return state.WithStageContent(step.Stage, strings.TrimSpace(out)), nil
}
