// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"time"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// EventSink receives progress events in stage-execution order.
type EventSink func(types.Event)

// ChannelSink forwards events to ch. Sends block, so the reader must keep
// draining until the run returns.
func ChannelSink(ch chan<- types.Event) EventSink {
	return func(e types.Event) { ch <- e }
}

// StatusPayload describes a stage starting or being skipped.
type StatusPayload struct {
	Message string `json:"message"`
	Attempt int    `json:"attempt,omitempty"`
}

// AnswerPayload carries the final answer.
type AnswerPayload struct {
	Content    string `json:"content"`
	FinalStage string `json:"final_stage"`
}

// DonePayload summarises a finished run.
type DonePayload struct {
	RunID                string  `json:"run_id"`
	FinalStage           string  `json:"final_stage"`
	Aborted              bool    `json:"aborted"`
	AbortReason          string  `json:"abort_reason,omitempty"`
	AbortStage           string  `json:"abort_stage,omitempty"`
	CitationPreservation float64 `json:"citation_preservation"`
}

func (o *Orchestrator) emit(typ types.EventType, stage string, payload any) {
	if o.sink == nil {
		return
	}
	o.sink(types.Event{Type: typ, Stage: stage, Payload: payload, At: time.Now().UTC()})
}

func donePayload(state types.PipelineState) DonePayload {
	p := DonePayload{
		RunID:                state.RunID,
		FinalStage:           state.FinalStage,
		Aborted:              state.Aborted(),
		CitationPreservation: state.CitationPreservation,
	}
	if state.Abort != nil {
		p.AbortReason = state.Abort.Reason
		p.AbortStage = state.Abort.AtStage
	}
	return p
}
