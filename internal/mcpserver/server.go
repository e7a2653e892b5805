// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mcpserver exposes the answer pipeline as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Answerer runs the pipeline for one question.
type Answerer interface {
	Run(ctx context.Context, question string, history []types.Message) (types.PipelineState, error)
}

// AnswererFactory returns an Answerer for a depth profile name. An empty
// name selects the configured default.
type AnswererFactory func(depth string) (Answerer, error)

// Recorder stores finished runs.
type Recorder interface {
	Save(ctx context.Context, state types.PipelineState) (history.Run, error)
}

// MetadataAnswerQuestion describes the answer_question tool.
var MetadataAnswerQuestion = &mcp.Tool{
	Name: "answer_question",
	Description: "Answer a Python programming question using the local document library and tiered web search. " +
		"The answer passes through quality gates (technical, structural, compiler, narrative) and carries inline " +
		"citations such as [doc-1] or [web-2] that refer to the returned citation list. " +
		"If a gate aborts the run, the last answer that passed is returned with aborted set.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"question"},
		"properties": map[string]interface{}{
			"question": map[string]interface{}{
				"type":        "string",
				"description": "The question to answer",
			},
			"history": map[string]interface{}{
				"type":        "array",
				"description": "Earlier conversation turns, oldest first",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"role":    map[string]interface{}{"type": "string", "enum": []string{"user", "assistant"}},
						"content": map[string]interface{}{"type": "string"},
					},
				},
			},
			"depth": map[string]interface{}{
				"type":        "string",
				"description": "Research depth. quick searches official sources only; deep adds academic and community sources.",
				"enum":        []string{"quick", "standard", "deep"},
			},
		},
	},
}

// InputAnswerQuestion is the input for the answer_question tool.
type InputAnswerQuestion struct {
	Question string          `json:"question"`
	History  []types.Message `json:"history,omitempty"`
	Depth    string          `json:"depth,omitempty"`
}

// OutputAnswerQuestion is the output for the answer_question tool.
type OutputAnswerQuestion struct {
	RunID       string             `json:"run_id"`
	Answer      string             `json:"answer"`
	FinalStage  string             `json:"final_stage"`
	Aborted     bool               `json:"aborted"`
	AbortReason string             `json:"abort_reason,omitempty"`
	Citations   []types.Citation   `json:"citations"`
	Scores      map[string]float64 `json:"scores"`
}

// Server serves the answer_question tool.
type Server struct {
	Answerers AnswererFactory

	// Recorder, when set, stores every finished run.
	Recorder Recorder

	Version string
	Logger  *zap.Logger
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// AnswerQuestion runs the pipeline and returns the final answer with its
// citations and per-stage scores.
func (s *Server) AnswerQuestion(ctx context.Context, _ *mcp.CallToolRequest, input InputAnswerQuestion) (*mcp.CallToolResult, OutputAnswerQuestion, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, OutputAnswerQuestion{}, fmt.Errorf("question is required")
	}

	answerer, err := s.Answerers(input.Depth)
	if err != nil {
		return nil, OutputAnswerQuestion{}, err
	}

	state, err := answerer.Run(ctx, question, input.History)
	if err != nil {
		return nil, OutputAnswerQuestion{}, fmt.Errorf("answering question: %w", err)
	}

	if s.Recorder != nil {
		if _, err := s.Recorder.Save(ctx, state); err != nil {
			s.logger().Warn("mcpserver: saving run failed", zap.String("run_id", state.RunID), zap.Error(err))
		}
	}

	out := OutputAnswerQuestion{
		RunID:      state.RunID,
		Answer:     state.Answer(),
		FinalStage: state.FinalStage,
		Aborted:    state.Aborted(),
		Citations:  citation.Used(state.Answer(), state.Citations),
		Scores:     make(map[string]float64, len(state.Evaluations)),
	}
	if state.Abort != nil {
		out.AbortReason = state.Abort.Reason
	}
	for stage, rep := range state.Evaluations {
		out.Scores[stage] = rep.TotalScore
	}
	s.logger().Info("mcpserver: answered",
		zap.String("run_id", out.RunID),
		zap.String("final_stage", out.FinalStage),
		zap.Bool("aborted", out.Aborted),
	)
	return nil, out, nil
}

// MCPServer builds the MCP server with the answer_question tool registered.
func (s *Server) MCPServer() *mcp.Server {
	version := s.Version
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{Name: "answer-engine", Version: version}, nil)
	mcp.AddTool(server, MetadataAnswerQuestion, s.AnswerQuestion)
	return server
}

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger().Info("mcpserver: serving on stdio")
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}
