// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research fans a question out to vector retrieval and tiered web
// search concurrently and returns a citation-numbered result set.
package research

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorStore finds the chunks closest to a query vector.
type VectorStore interface {
	SimilaritySearch(ctx context.Context, vector []float64, limit int, maxDistance float64) ([]types.RetrievalResult, error)
}

// WebSearcher runs one web query restricted to a domain allow-list.
type WebSearcher interface {
	Search(ctx context.Context, query string, domains []string, maxResults int) ([]types.WebResult, error)
}

// Timeouts bounds each external call made during research.
type Timeouts struct {
	Embed        time.Duration
	VectorSearch time.Duration
	WebSearch    time.Duration
}

// Result holds the numbered output of a research pass.
type Result struct {
	Docs       []types.RetrievalResult
	WebResults []types.WebResult

	// RAGOnly is set when the fallback rule skipped web search.
	RAGOnly bool
}

// Coordinator runs the research fan-out. Embedder and Store may be nil, in
// which case retrieval contributes nothing; Web may be nil to disable web
// search.
type Coordinator struct {
	Embedder Embedder
	Store    VectorStore
	Web      WebSearcher

	Tiers       []Tier
	MaxDistance float64

	// AlwaysWebSearch runs the web leg on every pass.
	AlwaysWebSearch bool

	Timeouts Timeouts
	Logger   *zap.Logger
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Coordinator) tiers() []Tier {
	if len(c.Tiers) == 0 {
		return DefaultTiers
	}
	return c.Tiers
}

// Research runs retrieval and, when AlwaysWebSearch is set, tiered web
// search concurrently. A failing leg is logged and contributes zero results;
// the only error returned is the caller's context error.
func (c *Coordinator) Research(ctx context.Context, question string, profile DepthProfile) (Result, error) {
	log := c.logger()
	start := time.Now()

	var (
		docs []types.RetrievalResult
		web  []types.WebResult
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs = c.retrieve(gCtx, question, profile.RAGLimit)
		return nil
	})
	if c.AlwaysWebSearch && c.Web != nil {
		g.Go(func() error {
			web = c.searchWeb(gCtx, question, profile)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("research: %w", err)
	}

	res := Result{
		Docs:       NumberDocuments(docs),
		WebResults: NumberWebResults(web),
		RAGOnly:    !(c.AlwaysWebSearch && c.Web != nil),
	}
	log.Info("research: complete",
		zap.String("depth", string(profile.Name)),
		zap.Int("documents", len(res.Docs)),
		zap.Int("web_results", len(res.WebResults)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// ResearchWithFallback retrieves first and runs web search only when the
// fallback rule judges retrieval insufficient.
func (c *Coordinator) ResearchWithFallback(ctx context.Context, question string, profile DepthProfile, threshold float64) (Result, error) {
	docs := c.retrieve(ctx, question, profile.RAGLimit)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("research: %w", err)
	}

	res := Result{Docs: NumberDocuments(docs), RAGOnly: true}
	if NeedsWebSearch(docs, threshold) && c.Web != nil {
		c.logger().Info("research: retrieval insufficient, searching web",
			zap.Int("documents", len(docs)),
		)
		res.WebResults = NumberWebResults(c.searchWeb(ctx, question, profile))
		res.RAGOnly = false
	}
	return res, nil
}

func (c *Coordinator) retrieve(ctx context.Context, question string, limit int) []types.RetrievalResult {
	if c.Embedder == nil || c.Store == nil {
		return nil
	}
	log := c.logger()

	embedCtx, cancel := httputil.WithTimeout(ctx, c.Timeouts.Embed)
	vectors, err := c.Embedder.Embed(embedCtx, []string{question})
	cancel()
	if err != nil {
		log.Warn("research: embedding question failed", zap.Error(err))
		return nil
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		log.Warn("research: embedding returned no vector")
		return nil
	}

	searchCtx, cancel := httputil.WithTimeout(ctx, c.Timeouts.VectorSearch)
	defer cancel()
	docs, err := c.Store.SimilaritySearch(searchCtx, vectors[0], limit, c.MaxDistance)
	if err != nil {
		log.Warn("research: similarity search failed", zap.Error(err))
		return nil
	}
	return docs
}

func (c *Coordinator) searchWeb(ctx context.Context, question string, profile DepthProfile) []types.WebResult {
	return tieredSearch(ctx, timeoutSearcher{next: c.Web, timeout: c.Timeouts.WebSearch}, c.tiers(), question, profile, c.logger())
}

// timeoutSearcher applies a per-call deadline to every tier query.
type timeoutSearcher struct {
	next    WebSearcher
	timeout time.Duration
}

func (t timeoutSearcher) Search(ctx context.Context, query string, domains []string, maxResults int) ([]types.WebResult, error) {
	ctx, cancel := httputil.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Search(ctx, query, domains, maxResults)
}

// NumberDocuments assigns doc-1..n in result order.
func NumberDocuments(docs []types.RetrievalResult) []types.RetrievalResult {
	out := make([]types.RetrievalResult, len(docs))
	for i, d := range docs {
		d.ID = fmt.Sprintf("doc-%d", i+1)
		out[i] = d
	}
	return out
}

// NumberWebResults assigns web-1..n in result order.
func NumberWebResults(results []types.WebResult) []types.WebResult {
	out := make([]types.WebResult, len(results))
	for i, r := range results {
		r.ID = fmt.Sprintf("web-%d", i+1)
		out[i] = r
	}
	return out
}
