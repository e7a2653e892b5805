// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

const (
	maxSummaryChars = 600
	maxPageBytes    = 2 << 20
)

// PageFetcher downloads a page and extracts its readable text.
type PageFetcher struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// Fetch returns the readable text of the page at rawURL.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	ctx, cancel := httputil.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := httputil.DoWithRetry(ctx, client, req, 1, f.Logger)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("page returned HTTP %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting readable text: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}

// FillingSearcher wraps a Searcher and fills empty result summaries with
// the opening of each page's readable text.
type FillingSearcher struct {
	Next    Searcher
	Fetcher *PageFetcher
	Logger  *zap.Logger
}

// Search delegates to Next, then fills summaries that came back empty. A
// page that cannot be fetched keeps its empty summary.
func (s *FillingSearcher) Search(ctx context.Context, query string, domains []string, maxResults int) ([]types.WebResult, error) {
	results, err := s.Next.Search(ctx, query, domains, maxResults)
	if err != nil {
		return nil, err
	}

	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	for i := range results {
		if results[i].Summary != "" {
			continue
		}
		text, err := s.Fetcher.Fetch(ctx, results[i].URL)
		if err != nil {
			log.Debug("websearch: summary fill failed", zap.String("url", results[i].URL), zap.Error(err))
			continue
		}
		results[i].Summary = clip(text, maxSummaryChars)
	}
	return results, nil
}

// clip shortens s to at most n bytes, cutting at the last space before n.
func clip(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	cut := strings.LastIndex(s[:n], " ")
	if cut <= 0 {
		cut = n
	}
	return s[:cut] + "..."
}
