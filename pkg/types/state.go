// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage names used as keys in PipelineState.StageContent, Evaluations, and
// RetryCounters.
const (
	StageResearch  = "research"
	StageDraft     = "draft"
	StageStructure = "structured"
	StageCompile   = "compiled"
	StageEnrich    = "enriched"
	StagePolish    = "polished"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Abort records why and where a run stopped. Once set the run is terminal.
type Abort struct {
	Reason  string `json:"reason" yaml:"reason"`
	AtStage string `json:"at_stage" yaml:"at_stage"`
}

// PipelineState is the record threaded through every stage of a run. Stages
// never mutate a state in place: each With method returns a new value whose
// maps and slices are independent of the receiver's.
type PipelineState struct {
	RunID    string    `json:"run_id" yaml:"run_id"`
	Question string    `json:"question" yaml:"question"`
	History  []Message `json:"history,omitempty" yaml:"history,omitempty"`

	ResearchDocs []RetrievalResult `json:"research_docs" yaml:"research_docs"`
	WebResults   []WebResult       `json:"web_results" yaml:"web_results"`

	// StageContent maps a stage name to the content it produced. A stage
	// writes only its own key.
	StageContent map[string]string `json:"stage_content" yaml:"stage_content"`

	// Citations lists retrieved documents then web results, each in
	// retrieval order; IDs are unique within a run.
	Citations []Citation `json:"citations" yaml:"citations"`

	Evaluations   map[string]EvaluationReport `json:"evaluations" yaml:"evaluations"`
	RetryCounters map[string]int              `json:"retry_counters" yaml:"retry_counters"`

	Abort *Abort `json:"abort,omitempty" yaml:"abort,omitempty"`

	// FinalStage names the stage whose content is the run's answer.
	FinalStage string `json:"final_stage" yaml:"final_stage"`

	// RAGOnly is set when the fallback rule judged retrieval sufficient and
	// web search was skipped.
	RAGOnly bool `json:"rag_only" yaml:"rag_only"`

	// CitationPreservation is the lowest recovered/attempted ratio of the
	// citation repair passes behind the answer.
	CitationPreservation float64 `json:"citation_preservation" yaml:"citation_preservation"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewPipelineState creates the initial state for a run.
func NewPipelineState(runID, question string, history []Message) PipelineState {
	return PipelineState{
		RunID:                runID,
		Question:             question,
		History:              append([]Message(nil), history...),
		StageContent:         map[string]string{},
		Evaluations:          map[string]EvaluationReport{},
		RetryCounters:        map[string]int{},
		CitationPreservation: 1,
		CreatedAt:            time.Now().UTC(),
	}
}

// Clone returns a deep copy of the state.
func (s PipelineState) Clone() PipelineState {
	out := s
	out.History = append([]Message(nil), s.History...)
	out.ResearchDocs = make([]RetrievalResult, len(s.ResearchDocs))
	for i, d := range s.ResearchDocs {
		if d.DocumentMetadata != nil {
			md := make(map[string]string, len(d.DocumentMetadata))
			for k, v := range d.DocumentMetadata {
				md[k] = v
			}
			d.DocumentMetadata = md
		}
		out.ResearchDocs[i] = d
	}
	out.WebResults = append([]WebResult(nil), s.WebResults...)
	out.Citations = make([]Citation, len(s.Citations))
	for i, c := range s.Citations {
		if c.RelevanceScore != nil {
			v := *c.RelevanceScore
			c.RelevanceScore = &v
		}
		out.Citations[i] = c
	}

	out.StageContent = make(map[string]string, len(s.StageContent))
	for k, v := range s.StageContent {
		out.StageContent[k] = v
	}
	out.Evaluations = make(map[string]EvaluationReport, len(s.Evaluations))
	for k, v := range s.Evaluations {
		out.Evaluations[k] = v.Clone()
	}
	out.RetryCounters = make(map[string]int, len(s.RetryCounters))
	for k, v := range s.RetryCounters {
		out.RetryCounters[k] = v
	}
	if s.Abort != nil {
		a := *s.Abort
		out.Abort = &a
	}
	return out
}

// WithResearch returns a copy carrying the given research results.
func (s PipelineState) WithResearch(docs []RetrievalResult, web []WebResult, ragOnly bool) PipelineState {
	out := s.Clone()
	out.ResearchDocs = append([]RetrievalResult(nil), docs...)
	out.WebResults = append([]WebResult(nil), web...)
	out.RAGOnly = ragOnly
	return out
}

// WithCitations returns a copy with the citation list replaced.
func (s PipelineState) WithCitations(citations []Citation) PipelineState {
	out := s.Clone()
	out.Citations = append([]Citation(nil), citations...)
	return out
}

// WithStageContent returns a copy with content recorded for stage.
func (s PipelineState) WithStageContent(stage, content string) PipelineState {
	out := s.Clone()
	out.StageContent[stage] = content
	return out
}

// WithEvaluation returns a copy with the report recorded for stage.
func (s PipelineState) WithEvaluation(stage string, report EvaluationReport) PipelineState {
	out := s.Clone()
	out.Evaluations[stage] = report.Clone()
	return out
}

// WithRetry returns a copy with the stage's retry counter incremented.
func (s PipelineState) WithRetry(stage string) PipelineState {
	out := s.Clone()
	out.RetryCounters[stage]++
	return out
}

// WithAbort returns a copy marked as aborted. An existing abort is kept.
func (s PipelineState) WithAbort(reason, stage string) PipelineState {
	out := s.Clone()
	if out.Abort == nil {
		out.Abort = &Abort{Reason: reason, AtStage: stage}
	}
	return out
}

// WithFinal returns a copy whose final answer is taken from stage.
func (s PipelineState) WithFinal(stage string) PipelineState {
	out := s.Clone()
	out.FinalStage = stage
	return out
}

// WithPreservation returns a copy recording a citation preservation rate.
func (s PipelineState) WithPreservation(rate float64) PipelineState {
	out := s.Clone()
	out.CitationPreservation = rate
	return out
}

// Aborted reports whether the run has been aborted.
func (s PipelineState) Aborted() bool {
	return s.Abort != nil
}

// Answer returns the content of the final stage.
func (s PipelineState) Answer() string {
	return s.StageContent[s.FinalStage]
}
