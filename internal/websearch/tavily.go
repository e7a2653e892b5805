// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package websearch queries the Tavily search API with domain allow-lists
// and optionally fills empty result summaries from the result pages.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIURL = "https://api.tavily.com/search"

// Searcher runs one web query restricted to a domain allow-list.
type Searcher interface {
	Search(ctx context.Context, query string, domains []string, maxResults int) ([]types.WebResult, error)
}

// TavilyClient queries the Tavily search API.
type TavilyClient struct {
	APIKey     string
	Client     *http.Client
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

type tavilyRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search runs the query and returns results in Tavily's relevance order.
// Result IDs and tiers are left for the caller to assign.
func (c *TavilyClient) Search(ctx context.Context, query string, domains []string, maxResults int) ([]types.WebResult, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("tavily API key not configured")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty web search query")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	data, err := json.Marshal(tavilyRequest{
		Query:          query,
		MaxResults:     maxResults,
		SearchDepth:    "advanced",
		IncludeDomains: domains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := httputil.WithTimeout(ctx, c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, c.MaxRetries, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing tavily response: %w", err)
	}

	results := make([]types.WebResult, 0, len(tr.Results))
	for _, r := range tr.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, types.WebResult{
			Title:   r.Title,
			URL:     r.URL,
			Summary: strings.TrimSpace(r.Content),
		})
	}

	if c.Logger != nil {
		c.Logger.Debug("websearch: tavily results",
			zap.String("query", query),
			zap.Int("count", len(results)),
		)
	}
	return results, nil
}
