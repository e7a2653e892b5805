// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator drives a run through research, drafting, and the
// gated rewrite stages. Each stage is evaluated after it runs and the
// report decides whether the run advances, retries the stage, or aborts.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/evaluate"
	"github.com/pdiddy/answer-engine/internal/research"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Orchestrator runs the stage graph fixed by its Builder.
type Orchestrator struct {
	cfg      Config
	research Researcher
	stages   []StageDescriptor
	sink     EventSink
	log      *zap.Logger
	newID    func() string
	repairer *citation.Repairer
}

// Stages returns the stage graph in execution order.
func (o *Orchestrator) Stages() []StageDescriptor {
	return append([]StageDescriptor(nil), o.stages...)
}

// Run answers question. The returned state is always well formed; an error
// is returned only when ctx is cancelled or every draft attempt fails, in
// which case the state holds whatever was gathered so far.
func (o *Orchestrator) Run(ctx context.Context, question string, history []types.Message) (types.PipelineState, error) {
	state := types.NewPipelineState(o.newID(), question, history)
	log := o.log.With(zap.String("run_id", state.RunID))
	log.Info("orchestrator: run started",
		zap.String("depth", string(o.cfg.Depth.Name)),
		zap.Int("stages", len(o.stages)),
	)

	state, err := o.runResearch(ctx, state)
	if err != nil {
		return state, err
	}

	complexity := evaluate.ResolveComplexity(o.cfg.Complexity, question)
	for _, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf("running stage %s: %w", stage.Name, err)
		}
		if reason := skipReason(state, stage, complexity); reason != "" {
			log.Info("orchestrator: stage skipped", zap.String("stage", stage.Name), zap.String("reason", reason))
			o.emit(types.EventStatus, stage.Name, StatusPayload{Message: "skipping " + stage.Name + ": " + reason})
			continue
		}
		state, err = o.runStage(ctx, state, stage, complexity, log)
		if err != nil {
			return state, err
		}
		if state.Aborted() {
			log.Warn("orchestrator: run aborted",
				zap.String("stage", state.Abort.AtStage),
				zap.String("reason", state.Abort.Reason),
				zap.String("final_stage", state.FinalStage),
			)
			break
		}
	}

	state = o.enforceCitations(state, log)

	o.emit(types.EventAnswer, state.FinalStage, AnswerPayload{Content: state.Answer(), FinalStage: state.FinalStage})
	o.emit(types.EventDone, "", donePayload(state))
	log.Info("orchestrator: run complete",
		zap.String("final_stage", state.FinalStage),
		zap.Bool("aborted", state.Aborted()),
		zap.Float64("citation_preservation", state.CitationPreservation),
	)
	return state, nil
}

func (o *Orchestrator) runResearch(ctx context.Context, state types.PipelineState) (types.PipelineState, error) {
	o.emit(types.EventStatus, types.StageResearch, StatusPayload{Message: "researching"})

	var (
		res research.Result
		err error
	)
	if o.cfg.LegacyMode {
		res, err = o.research.ResearchWithFallback(ctx, state.Question, o.cfg.Depth, o.cfg.FallbackThreshold)
	} else {
		res, err = o.research.Research(ctx, state.Question, o.cfg.Depth)
	}
	if err != nil {
		return state, fmt.Errorf("researching question: %w", err)
	}

	state = state.WithResearch(res.Docs, res.WebResults, res.RAGOnly)
	o.emit(types.EventDocuments, types.StageResearch, state.ResearchDocs)
	o.emit(types.EventWebResults, types.StageResearch, state.WebResults)
	return state, nil
}

// skipReason explains why stage should not run, or returns "". A stage whose
// input produced nothing has nothing to rewrite.
func skipReason(state types.PipelineState, d StageDescriptor, complexity string) string {
	if d.Input != "" {
		if _, ok := state.StageContent[d.Input]; !ok {
			return "no " + d.Input + " content"
		}
	}
	if d.Skip != nil {
		return d.Skip(state, complexity)
	}
	return ""
}

// runStage runs one descriptor until its report advances or aborts. A
// failed attempt spends a retry like a failed evaluation does, so the
// number of attempts is at most MaxRetries+1.
func (o *Orchestrator) runStage(ctx context.Context, state types.PipelineState, d StageDescriptor, complexity string, log *zap.Logger) (types.PipelineState, error) {
	log = log.With(zap.String("stage", d.Name))

	var feedback []string
	if d.Precheck != nil && d.Input != "" {
		rep := d.Precheck.Evaluate(o.evalInput(state, d.Input, state.StageContent[d.Input], complexity))
		key := d.Name + ".precheck"
		state = state.WithEvaluation(key, rep)
		o.emit(types.EventEvaluation, key, rep)
		if !rep.Passed {
			feedback = rep.Feedback
		}
	}

	// rate is the citation preservation of the latest stored attempt.
	rate := 1.0
	for attempt := 1; ; attempt++ {
		o.emit(types.EventStatus, d.Name, StatusPayload{Message: "running " + d.Name, Attempt: attempt})

		next, err := d.Run(ctx, state, feedback)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return state, fmt.Errorf("running stage %s: %w", d.Name, ctxErr)
			}
			if state.RetryCounters[d.Name] < d.MaxRetries {
				log.Warn("orchestrator: attempt failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
				state = state.WithRetry(d.Name)
				continue
			}
			if _, produced := state.StageContent[d.Name]; !produced {
				if d.Input == "" {
					return state, fmt.Errorf("running stage %s: %w", d.Name, err)
				}
				log.Warn("orchestrator: stage failed, keeping input", zap.String("input", d.Input), zap.Error(err))
				return state, nil
			}
			log.Warn("orchestrator: retries exhausted, keeping previous attempt", zap.Int("attempt", attempt), zap.Error(err))
			return accept(state, d.Name, rate), nil
		}
		state = next
		if d.Input != "" {
			state, rate = o.repairCitations(state, d, log)
		}

		if d.Evaluator == nil {
			return accept(state, d.Name, rate), nil
		}
		rep := d.Evaluator.Evaluate(o.evalInput(state, d.Input, state.StageContent[d.Name], complexity))
		state = state.WithEvaluation(d.Name, rep)
		o.emit(types.EventEvaluation, d.Name, rep)

		decision := decide(rep, state.RetryCounters[d.Name], d.MaxRetries, d.AbortOnFloor)
		log.Info("orchestrator: stage evaluated",
			zap.Int("attempt", attempt),
			zap.String("rubric", rep.Rubric),
			zap.Float64("score", rep.TotalScore),
			zap.Float64("threshold", rep.Threshold),
			zap.Bool("passed", rep.Passed),
			zap.Stringer("decision", decision),
		)

		switch decision {
		case Abort:
			reason := fmt.Sprintf("%s rubric floor violated: %s", rep.Rubric, strings.Join(rep.ViolatedFloors(), ", "))
			return state.WithAbort(reason, d.Name), nil
		case Advance:
			if d.GuardBaseline {
				if degraded, reason := o.degraded(state, d, complexity); degraded {
					return state.WithAbort(reason, d.Name), nil
				}
			}
			return accept(state, d.Name, rate), nil
		}
		state = state.WithRetry(d.Name)
		feedback = rep.Feedback
	}
}

// degraded re-scores the stage output with the technical rubric and
// reports whether it fell more than the tolerance below the draft.
func (o *Orchestrator) degraded(state types.PipelineState, d StageDescriptor, complexity string) (bool, string) {
	draft, ok := state.Evaluations[types.StageDraft]
	if !ok {
		return false, ""
	}
	rep := evaluate.Technical{}.Evaluate(o.evalInput(state, d.Input, state.StageContent[d.Name], complexity))
	floor := draft.TotalScore - o.cfg.QualityDegradationTolerance
	if rep.TotalScore >= floor {
		return false, ""
	}
	return true, fmt.Sprintf("quality degradation: technical score %.2f fell below draft %.2f minus tolerance %.2f",
		rep.TotalScore, draft.TotalScore, o.cfg.QualityDegradationTolerance)
}

func (o *Orchestrator) evalInput(state types.PipelineState, baselineStage, content, complexity string) evaluate.Input {
	in := evaluate.Input{
		Content:    content,
		Question:   state.Question,
		Docs:       state.ResearchDocs,
		Citations:  state.Citations,
		Complexity: complexity,
	}
	if baselineStage != "" {
		in.Baseline = state.StageContent[baselineStage]
	}
	if draft, ok := state.Evaluations[types.StageDraft]; ok {
		in.BaselineScore = draft.TotalScore
	}
	return in
}

// accept makes stage the answer. The run's preservation rate is the lowest
// of the stages behind the answer.
func accept(state types.PipelineState, stage string, rate float64) types.PipelineState {
	return state.WithFinal(stage).WithPreservation(math.Min(state.CitationPreservation, rate))
}

// repairCitations reattaches markers that the stage's latest attempt dropped
// from its input, before the attempt is evaluated, and returns the
// attempt's preservation rate.
func (o *Orchestrator) repairCitations(state types.PipelineState, d StageDescriptor, log *zap.Logger) (types.PipelineState, float64) {
	source := state.StageContent[d.Input]
	required := citation.ExtractIDs(citation.Strip(source, state.Citations))
	res := o.repairer.Repair(source, state.StageContent[d.Name], required)
	if len(res.Attempted) == 0 {
		return state, 1
	}
	log.Info("orchestrator: citations repaired",
		zap.Strings("recovered", res.Recovered),
		zap.Strings("failed", res.Failed),
		zap.Float64("rate", res.PreservationRate),
	)
	return state.WithStageContent(d.Name, res.Text), res.PreservationRate
}

// enforceCitations removes any marker in the answer that names no known
// citation.
func (o *Orchestrator) enforceCitations(state types.PipelineState, log *zap.Logger) types.PipelineState {
	final := state.FinalStage
	if final == "" {
		return state
	}
	o.emit(types.EventStatus, final, StatusPayload{Message: "checking citations"})

	answer := state.StageContent[final]
	unknown := citation.Validate(answer, state.Citations)
	if len(unknown) == 0 {
		return state
	}
	log.Warn("orchestrator: removing unknown citations", zap.Strings("ids", unknown))
	return state.WithStageContent(final, citation.Strip(answer, state.Citations))
}
