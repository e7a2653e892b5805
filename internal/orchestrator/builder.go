// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/evaluate"
	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/internal/research"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Config fixes the shape of the stage graph and its retry budget.
type Config struct {
	EnableStructure bool
	EnableCompile   bool
	EnableEnrich    bool
	EnablePolish    bool

	MaxRetries types.RetryLimits
	Depth      research.DepthProfile

	// QualityDegradationTolerance is how many technical points the enriched
	// answer may lose against the draft.
	QualityDegradationTolerance float64

	// LegacyMode runs the draft stage alone and applies the retrieval
	// fallback rule before web search.
	LegacyMode        bool
	FallbackThreshold float64

	Temperatures types.Temperatures

	// Complexity is simple, standard, critical, or auto.
	Complexity string

	// EnrichRubric gates the enrich stage: narrative or brand.
	EnrichRubric string

	// EnrichmentQualityThreshold lets a simple question skip enrichment when
	// its draft scored at least this much. Zero always enriches.
	EnrichmentQualityThreshold float64
}

// ConfigFromPipeline derives an orchestrator config from the loaded
// pipeline configuration.
func ConfigFromPipeline(cfg types.PipelineConfig) (Config, error) {
	profile, err := research.ParseDepth(cfg.Research.Depth)
	if err != nil {
		return Config{}, err
	}
	return Config{
		EnableStructure:             cfg.Stages.EnableStructure,
		EnableCompile:               cfg.Stages.EnableCompile,
		EnableEnrich:                cfg.Stages.EnableEnrich,
		EnablePolish:                cfg.Stages.EnablePolish,
		MaxRetries:                  cfg.Stages.MaxRetries,
		Depth:                       profile,
		QualityDegradationTolerance: cfg.Stages.QualityDegradationTolerance,
		LegacyMode:                  cfg.Stages.LegacyMode,
		FallbackThreshold:           cfg.Research.FallbackThreshold,
		Temperatures:                cfg.Stages.Temperatures,
		Complexity:                  cfg.Stages.Complexity,
		EnrichRubric:                cfg.Stages.EnrichRubric,
		EnrichmentQualityThreshold:  cfg.Stages.EnrichmentQualityThreshold,
	}, nil
}

// Researcher gathers documents and web results for a question.
type Researcher interface {
	Research(ctx context.Context, question string, profile research.DepthProfile) (research.Result, error)
	ResearchWithFallback(ctx context.Context, question string, profile research.DepthProfile, threshold float64) (research.Result, error)
}

// Drafter writes the draft stage.
type Drafter interface {
	Generate(ctx context.Context, state types.PipelineState, feedback []string) (types.PipelineState, error)
}

// Rewriter runs a downstream rewrite step.
type Rewriter interface {
	Transform(ctx context.Context, state types.PipelineState, step generate.Step, feedback []string) (types.PipelineState, error)
}

// Components are the collaborators a run drives.
type Components struct {
	Research    Researcher
	Generator   Drafter
	Transformer Rewriter

	// Bank overrides the default stage evaluators.
	Bank *evaluate.Bank
}

// SkipFunc returns a non-empty reason when a stage should not run.
type SkipFunc func(state types.PipelineState, complexity string) string

// RunFunc produces a stage's content from the state and the feedback of
// the previous failed attempt.
type RunFunc func(ctx context.Context, state types.PipelineState, feedback []string) (types.PipelineState, error)

// StageDescriptor is one node of the fixed stage graph.
type StageDescriptor struct {
	Name  string
	Input string
	Run   RunFunc

	// Evaluator gates the stage; nil advances unconditionally.
	Evaluator evaluate.Evaluator

	// Precheck scores the stage's input before it runs. Its feedback seeds
	// the first attempt.
	Precheck evaluate.Evaluator

	MaxRetries int

	// AbortOnFloor ends the run when a report misses a hard floor. It is
	// set for every evaluator that declares floors.
	AbortOnFloor bool

	// Skip, when set, is consulted before the stage runs.
	Skip SkipFunc

	// GuardBaseline re-scores the stage's output with the technical rubric
	// and aborts if it fell too far below the draft.
	GuardBaseline bool
}

// Builder assembles an Orchestrator. The stage list is decided here, once,
// from the config.
type Builder struct {
	cfg    Config
	comps  Components
	sink   EventSink
	logger *zap.Logger
	newID  func() string
}

// NewBuilder returns a builder for the given config and components. sink
// may be nil.
func NewBuilder(cfg Config, comps Components, sink EventSink) *Builder {
	return &Builder{cfg: cfg, comps: comps, sink: sink, newID: uuid.NewString}
}

// WithLogger sets the logger used by the orchestrator.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// WithRunIDs overrides run ID generation.
func (b *Builder) WithRunIDs(fn func() string) *Builder {
	b.newID = fn
	return b
}

// Build validates the components and fixes the stage graph.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.comps.Research == nil {
		return nil, errors.New("orchestrator: research component is required")
	}
	if b.comps.Generator == nil {
		return nil, errors.New("orchestrator: generator component is required")
	}
	if b.cfg.LegacyMode {
		b.cfg.EnableStructure, b.cfg.EnableCompile, b.cfg.EnableEnrich, b.cfg.EnablePolish = false, false, false, false
	}
	downstream := b.cfg.EnableStructure || b.cfg.EnableCompile || b.cfg.EnableEnrich || b.cfg.EnablePolish
	if downstream && b.comps.Transformer == nil {
		return nil, errors.New("orchestrator: transformer component is required when rewrite stages are enabled")
	}
	if b.cfg.Depth.Name == "" {
		b.cfg.Depth = research.DepthProfiles[research.DepthStandard]
	}
	if b.cfg.FallbackThreshold == 0 {
		b.cfg.FallbackThreshold = research.DefaultFallbackThreshold
	}

	bank := b.comps.Bank
	if bank == nil {
		var opts []evaluate.BankOption
		if b.cfg.EnrichRubric != "" {
			e, err := evaluate.ByName(b.cfg.EnrichRubric)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: enrich rubric: %w", err)
			}
			opts = append(opts, evaluate.WithStage(types.StageEnrich, e))
		}
		bank = evaluate.NewBank(opts...)
	}

	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}

	gen := b.comps.Generator
	draftEval := bank.For(types.StageDraft)
	stages := []StageDescriptor{{
		Name:         types.StageDraft,
		Run:          gen.Generate,
		Evaluator:    draftEval,
		Precheck:     bank.Precheck(types.StageDraft),
		MaxRetries:   b.cfg.MaxRetries.Generate,
		AbortOnFloor: draftEval != nil && evaluate.HasFloors(draftEval),
	}}

	prev := types.StageDraft
	add := func(step generate.Step, maxRetries int, abortOnFloor, guard bool) *StageDescriptor {
		step.Input = prev
		tr := b.comps.Transformer
		e := bank.For(step.Stage)
		stages = append(stages, StageDescriptor{
			Name:  step.Stage,
			Input: prev,
			Run: func(ctx context.Context, s types.PipelineState, feedback []string) (types.PipelineState, error) {
				return tr.Transform(ctx, s, step, feedback)
			},
			Evaluator:     e,
			Precheck:      bank.Precheck(step.Stage),
			MaxRetries:    maxRetries,
			AbortOnFloor:  abortOnFloor || (e != nil && evaluate.HasFloors(e)),
			GuardBaseline: guard,
		})
		prev = step.Stage
		return &stages[len(stages)-1]
	}
	temps := b.cfg.Temperatures
	if b.cfg.EnableStructure {
		add(generate.StructureStep(temps.Structure), b.cfg.MaxRetries.Structure, false, false)
	}
	if b.cfg.EnableCompile {
		add(generate.CompileStep(temps.Compiler), b.cfg.MaxRetries.Compile, true, false)
	}
	if b.cfg.EnableEnrich {
		enrich := add(generate.EnrichStep(temps.Narrative), b.cfg.MaxRetries.Enrich, true, true)
		if t := b.cfg.EnrichmentQualityThreshold; t > 0 {
			enrich.Skip = enrichSkip(t)
		}
	}
	if b.cfg.EnablePolish {
		add(generate.PolishStep(temps.Polish), b.cfg.MaxRetries.Polish, true, true)
	}

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	log.Debug("orchestrator: built", zap.Strings("stages", names), zap.Bool("legacy_mode", b.cfg.LegacyMode))

	return &Orchestrator{
		cfg:      b.cfg,
		research: b.comps.Research,
		stages:   stages,
		sink:     b.sink,
		log:      log,
		newID:    b.newID,
		repairer: &citation.Repairer{Logger: log},
	}, nil
}

// enrichSkip passes over enrichment for a simple question whose draft
// already scored at least threshold.
func enrichSkip(threshold float64) SkipFunc {
	return func(state types.PipelineState, complexity string) string {
		draft, ok := state.Evaluations[types.StageDraft]
		if !ok || evaluate.ShouldEnrich(complexity, draft.TotalScore, threshold) {
			return ""
		}
		return fmt.Sprintf("%s question, draft scored %.2f (skip threshold %.2f)", complexity, draft.TotalScore, threshold)
	}
}
