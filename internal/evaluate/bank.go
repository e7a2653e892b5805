// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evaluate

import (
	"fmt"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// Bank assigns a gating evaluator to each pipeline stage.
type Bank struct {
	byStage   map[string]Evaluator
	prechecks map[string]Evaluator
}

// BankOption customises NewBank.
type BankOption func(*Bank)

// WithStage gates stage with e.
func WithStage(stage string, e Evaluator) BankOption {
	return func(b *Bank) { b.byStage[stage] = e }
}

// WithPrecheck runs e over a stage's input before the stage runs.
func WithPrecheck(stage string, e Evaluator) BankOption {
	return func(b *Bank) { b.prechecks[stage] = e }
}

// NewBank returns the default assignment: technical for the draft, the
// structure gate for the structured rewrite (with the technical gate as a
// cheap precheck of its input), compiler for the compiled answer, narrative
// for enrichment, and brand for the polish pass.
func NewBank(opts ...BankOption) *Bank {
	b := &Bank{
		byStage: map[string]Evaluator{
			types.StageDraft:     Technical{},
			types.StageStructure: Structural{Gate: GateStructure},
			types.StageCompile:   Compiler{},
			types.StageEnrich:    Narrative{},
			types.StagePolish:    Brand{},
		},
		prechecks: map[string]Evaluator{
			types.StageStructure: Structural{Gate: GateTechnical},
		},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// For returns the evaluator gating stage, or nil.
func (b *Bank) For(stage string) Evaluator {
	return b.byStage[stage]
}

// Precheck returns the evaluator run over stage's input, or nil.
func (b *Bank) Precheck(stage string) Evaluator {
	return b.prechecks[stage]
}

// ByName returns a rubric evaluator by name.
func ByName(name string) (Evaluator, error) {
	switch name {
	case RubricTechnical:
		return Technical{}, nil
	case RubricStructural:
		return Structural{Gate: GateStructure}, nil
	case RubricCompiler:
		return Compiler{}, nil
	case RubricNarrative:
		return Narrative{}, nil
	case RubricBrand:
		return Brand{}, nil
	}
	return nil, fmt.Errorf("unknown rubric %q", name)
}
