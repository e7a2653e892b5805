// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/answer-engine/pkg/types"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

type fakeStore struct {
	docs      []types.RetrievalResult
	err       error
	lastLimit int
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ []float64, limit int, _ float64) ([]types.RetrievalResult, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

// fakeWeb answers by the first domain of each query.
type fakeWeb struct {
	mu      sync.Mutex
	byTier  map[string][]types.WebResult
	failing map[string]bool
	queries []string
}

func (f *fakeWeb) Search(_ context.Context, query string, domains []string, _ int) ([]types.WebResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	key := domains[0]
	if f.failing[key] {
		return nil, errors.New("search backend down")
	}
	return append([]types.WebResult(nil), f.byTier[key]...), nil
}

func webResults(prefix string, n int) []types.WebResult {
	var out []types.WebResult
	for i := 1; i <= n; i++ {
		out = append(out, types.WebResult{
			Title: fmt.Sprintf("%s %d", prefix, i),
			URL:   fmt.Sprintf("https://%s.example/%d", prefix, i),
		})
	}
	return out
}

func TestParseDepth(t *testing.T) {
	tests := []struct {
		in      string
		want    Depth
		wantErr bool
	}{
		{"", DepthStandard, false},
		{"quick", DepthQuick, false},
		{" DEEP ", DepthDeep, false},
		{"exhaustive", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := ParseDepth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}
}

func TestDepthProfiles(t *testing.T) {
	assert.Equal(t, DepthProfile{Name: DepthQuick, RAGLimit: 10, WebLimit: 5, MaxTier: 1}, DepthProfiles[DepthQuick])
	assert.Equal(t, DepthProfile{Name: DepthStandard, RAGLimit: 15, WebLimit: 5, MaxTier: 2}, DepthProfiles[DepthStandard])
	assert.Equal(t, DepthProfile{Name: DepthDeep, RAGLimit: 20, WebLimit: 10, MaxTier: 3}, DepthProfiles[DepthDeep])
}

func TestTierQuery(t *testing.T) {
	got := TierQuery("what is a list", []string{"python.org", "pypi.org"})
	assert.Equal(t, "what is a list (site:python.org OR site:pypi.org)", got)
	assert.Equal(t, "q", TierQuery("q", nil))
}

func TestNeedsWebSearch(t *testing.T) {
	doc := func(d float64) types.RetrievalResult { return types.RetrievalResult{SimilarityScore: d} }
	tests := []struct {
		name string
		docs []types.RetrievalResult
		want bool
	}{
		{"no documents", nil, true},
		{"one weak document", []types.RetrievalResult{doc(0.7)}, true},
		{"one strong document", []types.RetrievalResult{doc(0.2)}, false},
		{"one document at threshold", []types.RetrievalResult{doc(0.5)}, false},
		{"two documents", []types.RetrievalResult{doc(0.3), doc(0.4)}, false},
		{"two weak documents", []types.RetrievalResult{doc(0.7), doc(0.8)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsWebSearch(tt.docs, DefaultFallbackThreshold))
		})
	}
}

func TestResearch_ConcurrentLegsAndNumbering(t *testing.T) {
	store := &fakeStore{docs: []types.RetrievalResult{
		{DocumentID: "a", Content: "first"},
		{DocumentID: "b", Content: "second"},
	}}
	web := &fakeWeb{byTier: map[string][]types.WebResult{
		"python.org": webResults("official", 2),
		"arxiv.org":  webResults("academic", 2),
	}}
	c := &Coordinator{Embedder: fakeEmbedder{}, Store: store, Web: web, AlwaysWebSearch: true, MaxDistance: 0.8}

	res, err := c.Research(context.Background(), "lists", DepthProfiles[DepthStandard])
	require.NoError(t, err)

	assert.Equal(t, 15, store.lastLimit)
	require.Len(t, res.Docs, 2)
	assert.Equal(t, "doc-1", res.Docs[0].ID)
	assert.Equal(t, "doc-2", res.Docs[1].ID)

	require.Len(t, res.WebResults, 4)
	for i, r := range res.WebResults {
		assert.Equal(t, fmt.Sprintf("web-%d", i+1), r.ID)
	}
	assert.Equal(t, types.TierOfficial, res.WebResults[0].PriorityTier)
	assert.Equal(t, 1, res.WebResults[1].TierRank)
	assert.Equal(t, types.TierAcademic, res.WebResults[2].PriorityTier)
	assert.False(t, res.RAGOnly)
	assert.Len(t, web.queries, 2)
}

func TestResearch_TierSelectionByDepth(t *testing.T) {
	tests := []struct {
		depth   Depth
		queries int
	}{
		{DepthQuick, 1},
		{DepthStandard, 2},
		{DepthDeep, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			web := &fakeWeb{}
			c := &Coordinator{Web: web, AlwaysWebSearch: true}
			_, err := c.Research(context.Background(), "q", DepthProfiles[tt.depth])
			require.NoError(t, err)
			assert.Len(t, web.queries, tt.queries)
		})
	}
}

func TestResearch_DedupAndTruncate(t *testing.T) {
	dup := types.WebResult{Title: "dup", URL: "https://WWW.Python.org/lists/"}
	web := &fakeWeb{byTier: map[string][]types.WebResult{
		"python.org":     append(webResults("official", 3), types.WebResult{Title: "first", URL: "https://python.org/lists"}),
		"arxiv.org":      append([]types.WebResult{dup}, webResults("academic", 3)...),
		"realpython.com": webResults("community", 5),
	}}
	c := &Coordinator{Web: web, AlwaysWebSearch: true}

	res, err := c.Research(context.Background(), "q", DepthProfiles[DepthDeep])
	require.NoError(t, err)

	require.Len(t, res.WebResults, 10)
	seen := map[string]bool{}
	for _, r := range res.WebResults {
		key := normalizeURL(r.URL)
		assert.False(t, seen[key], "duplicate url %s", r.URL)
		seen[key] = true
	}
	assert.Equal(t, "first", res.WebResults[3].Title)
	assert.Equal(t, "academic 1", res.WebResults[4].Title)
}

func TestResearch_MergesInRankOrder(t *testing.T) {
	shared := "https://docs.python.org/3/tutorial/datastructures.html"
	web := &fakeWeb{byTier: map[string][]types.WebResult{
		"stackoverflow.com": {{Title: "community copy", URL: shared}, {Title: "answer", URL: "https://stackoverflow.com/q/1"}},
		"docs.python.org":   {{Title: "official copy", URL: shared}},
	}}
	c := &Coordinator{
		Web:             web,
		AlwaysWebSearch: true,
		Tiers: []Tier{
			{Rank: 3, Name: "community", Domains: []string{"stackoverflow.com"}},
			{Rank: 1, Name: "official", Domains: []string{"docs.python.org"}},
		},
	}

	res, err := c.Research(context.Background(), "q", DepthProfiles[DepthDeep])
	require.NoError(t, err)

	require.Len(t, res.WebResults, 2)
	assert.Equal(t, "official copy", res.WebResults[0].Title, "the higher-priority tier wins a shared URL")
	assert.Equal(t, types.TierOfficial, res.WebResults[0].PriorityTier)
	assert.Equal(t, "web-1", res.WebResults[0].ID)
	assert.Equal(t, "answer", res.WebResults[1].Title)
	assert.Equal(t, 3, res.WebResults[1].TierRank)
}

func TestResearch_FailingTierContributesNothing(t *testing.T) {
	web := &fakeWeb{
		byTier:  map[string][]types.WebResult{"arxiv.org": webResults("academic", 2)},
		failing: map[string]bool{"python.org": true},
	}
	c := &Coordinator{Web: web, AlwaysWebSearch: true}

	res, err := c.Research(context.Background(), "q", DepthProfiles[DepthStandard])
	require.NoError(t, err)
	require.Len(t, res.WebResults, 2)
	assert.Equal(t, "web-1", res.WebResults[0].ID)
	assert.Equal(t, types.TierAcademic, res.WebResults[0].PriorityTier)
}

func TestResearch_FailingRetrievalDegrades(t *testing.T) {
	tests := []struct {
		name string
		c    *Coordinator
	}{
		{"embed error", &Coordinator{Embedder: fakeEmbedder{err: errors.New("quota")}, Store: &fakeStore{}}},
		{"store error", &Coordinator{Embedder: fakeEmbedder{}, Store: &fakeStore{err: errors.New("locked")}}},
		{"no store", &Coordinator{Embedder: fakeEmbedder{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.c.Research(context.Background(), "q", DepthProfiles[DepthQuick])
			require.NoError(t, err)
			assert.Empty(t, res.Docs)
			assert.True(t, res.RAGOnly)
		})
	}
}

func TestResearch_ZeroDocsThreeWebResults(t *testing.T) {
	web := &fakeWeb{byTier: map[string][]types.WebResult{"python.org": webResults("official", 3)}}
	c := &Coordinator{Embedder: fakeEmbedder{}, Store: &fakeStore{}, Web: web, AlwaysWebSearch: true}

	res, err := c.Research(context.Background(), "q", DepthProfiles[DepthQuick])
	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.Len(t, res.WebResults, 3)
	assert.False(t, res.RAGOnly)
}

func TestResearch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Coordinator{Embedder: fakeEmbedder{}, Store: &fakeStore{}}
	_, err := c.Research(ctx, "q", DepthProfiles[DepthQuick])
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResearchWithFallback(t *testing.T) {
	strong := []types.RetrievalResult{{SimilarityScore: 0.1}, {SimilarityScore: 0.2}}

	t.Run("zero docs searches web", func(t *testing.T) {
		web := &fakeWeb{byTier: map[string][]types.WebResult{"python.org": webResults("official", 3)}}
		c := &Coordinator{Embedder: fakeEmbedder{}, Store: &fakeStore{}, Web: web}
		res, err := c.ResearchWithFallback(context.Background(), "q", DepthProfiles[DepthQuick], 0.5)
		require.NoError(t, err)
		assert.Len(t, res.WebResults, 3)
		assert.False(t, res.RAGOnly)
	})

	t.Run("strong docs skip web", func(t *testing.T) {
		web := &fakeWeb{}
		c := &Coordinator{Embedder: fakeEmbedder{}, Store: &fakeStore{docs: strong}, Web: web}
		res, err := c.ResearchWithFallback(context.Background(), "q", DepthProfiles[DepthQuick], 0.5)
		require.NoError(t, err)
		assert.Len(t, res.Docs, 2)
		assert.Empty(t, res.WebResults)
		assert.Empty(t, web.queries)
		assert.True(t, res.RAGOnly)
	})
}

func TestLoadTiers(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "tiers.yaml")
	require.NoError(t, os.WriteFile(good, []byte(strings.Join([]string{
		"tiers:",
		"  - rank: 1",
		"    name: official",
		"    limit: 4",
		"    domains: [go.dev, pkg.go.dev]",
		"  - rank: 3",
		"    name: community",
		"    domains: [github.com]",
	}, "\n")), 0o644))

	tiers, err := LoadTiers(good)
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, []string{"go.dev", "pkg.go.dev"}, tiers[0].Domains)
	assert.Equal(t, 4, tiers[0].Limit)
	assert.Equal(t, 3, tiers[1].Rank)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tiers:\n  - rank: 7\n    domains: [x.org]\n"), 0o644))
	_, err = LoadTiers(bad)
	assert.Error(t, err)

	_, err = LoadTiers(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
