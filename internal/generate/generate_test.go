// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

type fakeChat struct {
	reply string
	err   error

	calls       int
	lastMsgs    []types.Message
	lastTemp    float64
	hadDeadline bool
}

func (f *fakeChat) Complete(ctx context.Context, msgs []types.Message, temp float64) (string, error) {
	f.calls++
	f.lastMsgs = msgs
	f.lastTemp = temp
	_, f.hadDeadline = ctx.Deadline()
	return f.reply, f.err
}

func researchedState() types.PipelineState {
	s := types.NewPipelineState("run-1", "How do Python lists work?", []types.Message{
		{Role: "user", Content: "What is a tuple?"},
		{Role: "assistant", Content: "An immutable sequence."},
	})
	return s.WithResearch(
		[]types.RetrievalResult{
			{ID: "doc-1", DocumentID: "d1", Title: "Lists", Content: "Lists are mutable.", SimilarityScore: 0.12345},
			{ID: "doc-2", DocumentID: "d2", Content: strings.Repeat("x", 1500), SimilarityScore: 0.3},
		},
		[]types.WebResult{
			{ID: "web-1", Title: "Python docs", URL: "https://docs.python.org/3/tutorial", Summary: "Official tutorial."},
		},
		false,
	)
}

func TestFormatDocuments(t *testing.T) {
	s := researchedState()
	text, cites := FormatDocuments(s.ResearchDocs)

	blocks := strings.Split(text, "\n\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "[doc-1] Lists\nScore: 0.1235\nLists are mutable.", blocks[0])
	assert.True(t, strings.HasPrefix(blocks[1], "[doc-2] Uploaded Document\nScore: 0.3000\n"))
	assert.Len(t, blocks[1], len("[doc-2] Uploaded Document\nScore: 0.3000\n")+maxExcerpt, "excerpt is truncated")

	require.Len(t, cites, 2)
	assert.Equal(t, "doc-1", cites[0].ID)
	assert.Equal(t, types.CitationDocument, cites[0].Kind)

	empty, none := FormatDocuments(nil)
	assert.Empty(t, empty)
	assert.Empty(t, none)
}

func TestFormatDocuments_CutsOnCharacterBoundary(t *testing.T) {
	// One ASCII byte shifts every three-byte character off the byte cut.
	content := "x" + strings.Repeat("列表", maxExcerpt)
	text, _ := FormatDocuments([]types.RetrievalResult{{ID: "doc-1", Title: "Listen", Content: content}})

	require.True(t, utf8.ValidString(text))
	body := strings.TrimPrefix(text, "[doc-1] Listen\nScore: 0.0000\n")
	assert.Equal(t, maxExcerpt, utf8.RuneCountInString(body))
	assert.True(t, strings.HasPrefix(content, body))
}

func TestFormatWebResults(t *testing.T) {
	text, cites := FormatWebResults(researchedState().WebResults)
	assert.Equal(t, "[web-1] Python docs\nURL: https://docs.python.org/3/tutorial\nOfficial tutorial.", text)
	require.Len(t, cites, 1)
	assert.Equal(t, "https://docs.python.org/3/tutorial", cites[0].SourceRef)
	assert.Equal(t, types.CitationWeb, cites[0].Kind)
}

func TestBuildMessages(t *testing.T) {
	msgs, cites := BuildMessages(researchedState(), nil)

	require.Len(t, msgs, 4)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "What is a tuple?", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.True(t, strings.HasPrefix(msgs[3].Content, "Question: How do Python lists work?\n\nDocument context:\n[doc-1] Lists"))
	assert.Contains(t, msgs[3].Content, "\n\nWeb context:\n[web-1] Python docs")
	assert.NotContains(t, msgs[3].Content, "Please revise")
	assert.Len(t, cites, 3)
}

func TestBuildMessages_NoContext(t *testing.T) {
	s := types.NewPipelineState("run-2", "What is a generator?", nil)
	msgs, cites := BuildMessages(s, []string{"Add citations", "Add code"})

	require.Len(t, msgs, 2)
	assert.Equal(t,
		"Question: What is a generator?\n\nDocument context:\nNone\n\nWeb context:\nNone"+
			"\n\nPlease revise the answer to resolve the following quality issues:\n- Add citations\n- Add code",
		msgs[1].Content)
	assert.Empty(t, cites)
}

func TestGenerator_Generate(t *testing.T) {
	chat := &fakeChat{reply: "  Lists are mutable [doc-1].\n"}
	g := &Generator{Chat: chat, Temperature: 0.3, Timeout: time.Minute}

	in := researchedState()
	out, err := g.Generate(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, "Lists are mutable [doc-1].", out.StageContent[types.StageDraft])
	assert.Len(t, out.Citations, 3)
	assert.Equal(t, 0.3, chat.lastTemp)
	assert.True(t, chat.hadDeadline)

	assert.Empty(t, in.StageContent, "input state is untouched")
	assert.Empty(t, in.Citations)
}

func TestGenerator_Error(t *testing.T) {
	g := &Generator{Chat: &fakeChat{err: errors.New("boom")}}
	in := researchedState()
	out, err := g.Generate(context.Background(), in, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating draft")
	assert.Empty(t, out.StageContent)
}

func TestTransformer_Transform(t *testing.T) {
	chat := &fakeChat{reply: "## Lists\n\nLists are mutable [doc-1]."}
	tr := &Transformer{Chat: chat}

	s := researchedState().WithStageContent(types.StageDraft, "Lists are mutable [doc-1]. See [web-1].")
	out, err := tr.Transform(context.Background(), s, StructureStep(0.2), nil)
	require.NoError(t, err)

	assert.Equal(t, "## Lists\n\nLists are mutable [doc-1].", out.StageContent[types.StageStructure])
	assert.Equal(t, s.StageContent[types.StageDraft], out.StageContent[types.StageDraft])
	assert.Equal(t, 0.2, chat.lastTemp)
	assert.False(t, chat.hadDeadline, "zero timeout leaves the context without a deadline")

	require.Len(t, chat.lastMsgs, 2)
	assert.Contains(t, chat.lastMsgs[0].Content, "[doc-1] [web-1]")
	assert.NotContains(t, chat.lastMsgs[0].Content, "previous attempt")
	assert.Contains(t, chat.lastMsgs[1].Content, "Lists are mutable [doc-1]. See [web-1].")
}

func TestTransformer_RetryIncludesPreviousAttempt(t *testing.T) {
	chat := &fakeChat{reply: "better"}
	tr := &Transformer{Chat: chat}

	s := researchedState().
		WithStageContent(types.StageStructure, "## Lists\n\nStructured [doc-1].").
		WithStageContent(types.StageCompile, "first attempt")
	_, err := tr.Transform(context.Background(), s, CompileStep(0.4), []string{"Add Micro Fix"})
	require.NoError(t, err)

	sys := chat.lastMsgs[0].Content
	assert.Contains(t, sys, "- Add Micro Fix")
	assert.Contains(t, sys, "Previous attempt:\nfirst attempt")
	assert.Contains(t, sys, "[doc-1]")
}

func TestTransformer_EnrichComplexity(t *testing.T) {
	chat := &fakeChat{reply: "story"}
	tr := &Transformer{Chat: chat, Complexity: "critical"}

	s := researchedState().WithStageContent(types.StageCompile, "compiled [doc-1]")
	out, err := tr.Transform(context.Background(), s, EnrichStep(0.7), nil)
	require.NoError(t, err)
	assert.Equal(t, "story", out.StageContent[types.StageEnrich])
	assert.Contains(t, chat.lastMsgs[0].Content, "a critical topic")
}

func TestTransformer_PolishReadsEnrichedAnswer(t *testing.T) {
	chat := &fakeChat{reply: "# Lists\n\npolished [doc-1]"}
	tr := &Transformer{Chat: chat}

	s := researchedState().WithStageContent(types.StageEnrich, "story [doc-1]")
	out, err := tr.Transform(context.Background(), s, PolishStep(0.7), []string{"Keywords missing"})
	require.NoError(t, err)

	assert.Equal(t, "# Lists\n\npolished [doc-1]", out.StageContent[types.StagePolish])
	assert.Equal(t, 0.7, chat.lastTemp)
	sys := chat.lastMsgs[0].Content
	assert.Contains(t, sys, "**The Micro Fix:**")
	assert.Contains(t, sys, "Citation markers to keep: [doc-1]")
	assert.Contains(t, sys, "- Keywords missing")
	assert.Contains(t, chat.lastMsgs[1].Content, "story [doc-1]")
}

func TestTransformer_MissingInput(t *testing.T) {
	chat := &fakeChat{reply: "x"}
	tr := &Transformer{Chat: chat}

	_, err := tr.Transform(context.Background(), researchedState(), CompileStep(0.4), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input stage structured has no content")
	assert.Zero(t, chat.calls)

	_, err = tr.Transform(context.Background(), researchedState(), Step{Stage: "custom", Input: types.StageDraft}, nil)
	require.Error(t, err)
}

func TestTransformer_ChatError(t *testing.T) {
	tr := &Transformer{Chat: &fakeChat{err: errors.New("rate limited")}}
	s := researchedState().WithStageContent(types.StageDraft, "draft")
	_, err := tr.Transform(context.Background(), s, StructureStep(0.2), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running structured step")
}
