// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate drafts answers from research context and runs the
// downstream rewrite steps (structure, compile, enrich) through a chat
// provider.
package generate

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// maxExcerpt bounds how many characters of each retrieved chunk enter the
// prompt.
const maxExcerpt = 1200

// ChatProvider completes a conversation.
type ChatProvider interface {
	Complete(ctx context.Context, messages []types.Message, temperature float64) (string, error)
}

// FormatDocuments renders retrieved chunks as labeled context blocks and
// returns their citations in the same order.
func FormatDocuments(docs []types.RetrievalResult) (string, []types.Citation) {
	if len(docs) == 0 {
		return "", nil
	}
	blocks := make([]string, len(docs))
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = "Uploaded Document"
		}
		blocks[i] = fmt.Sprintf("[%s] %s\nScore: %.4f\n%s", d.ID, title, d.SimilarityScore, excerpt(d.Content))
	}
	return strings.Join(blocks, "\n\n"), citation.Build(docs, nil)
}

// excerpt returns the first maxExcerpt characters of s.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= maxExcerpt {
		return s
	}
	return string([]rune(s)[:maxExcerpt])
}

// FormatWebResults renders web results as labeled context blocks and
// returns their citations in the same order.
func FormatWebResults(results []types.WebResult) (string, []types.Citation) {
	if len(results) == 0 {
		return "", nil
	}
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[%s] %s\nURL: %s\n%s", r.ID, r.Title, r.URL, r.Summary)
	}
	return strings.Join(blocks, "\n\n"), citation.Build(nil, results)
}

// RevisionSuffix turns evaluator feedback into revision instructions.
func RevisionSuffix(feedback []string) string {
	if len(feedback) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nPlease revise the answer to resolve the following quality issues:")
	for _, f := range feedback {
		b.WriteString("\n- ")
		b.WriteString(f)
	}
	return b.String()
}

// BuildMessages assembles the draft conversation: system instruction,
// history, then the question with its labeled context.
func BuildMessages(state types.PipelineState, feedback []string) ([]types.Message, []types.Citation) {
	docCtx, docCites := FormatDocuments(state.ResearchDocs)
	webCtx, webCites := FormatWebResults(state.WebResults)
	if docCtx == "" {
		docCtx = "None"
	}
	if webCtx == "" {
		webCtx = "None"
	}

	msgs := make([]types.Message, 0, len(state.History)+2)
	msgs = append(msgs, types.Message{Role: "system", Content: systemPrompt})
	msgs = append(msgs, state.History...)
	msgs = append(msgs, types.Message{
		Role: "user",
		Content: fmt.Sprintf("Question: %s\n\nDocument context:\n%s\n\nWeb context:\n%s%s",
			state.Question, docCtx, webCtx, RevisionSuffix(feedback)),
	})
	return msgs, append(docCites, webCites...)
}

// Generator writes the draft stage.
type Generator struct {
	Chat        ChatProvider
	Temperature float64
	Timeout     time.Duration
	Logger      *zap.Logger
}

// Generate asks the provider for a draft and returns a state carrying it
// along with the run's citations. Feedback from a failed evaluation is
// appended as revision instructions.
func (g *Generator) Generate(ctx context.Context, state types.PipelineState, feedback []string) (types.PipelineState, error) {
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}

	msgs, cites := BuildMessages(state, feedback)
	log.Info("generate: drafting",
		zap.String("run_id", state.RunID),
		zap.Float64("temperature", g.Temperature),
		zap.Int("documents", len(state.ResearchDocs)),
		zap.Int("web_results", len(state.WebResults)),
		zap.Int("feedback", len(feedback)),
	)

	callCtx, cancel := httputil.WithTimeout(ctx, g.Timeout)
	defer cancel()
	answer, err := g.Chat.Complete(callCtx, msgs, g.Temperature)
	if err != nil {
		return state, fmt.Errorf("generating draft: %w", err)
	}

	return state.WithCitations(cites).WithStageContent(types.StageDraft, strings.TrimSpace(answer)), nil
}
