// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides chat-completion and embedding clients. Each client
// applies a per-call timeout and the shared transport-level retry from
// httputil; stage-level retries are the orchestrator's concern.
package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// ChatProvider completes a conversation.
type ChatProvider interface {
	Complete(ctx context.Context, messages []types.Message, temperature float64) (string, error)
}

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ProviderError reports an authentication, quota, or network failure from
// a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Options holds the settings shared by every HTTP-backed client.
type Options struct {
	Client     *http.Client
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// do sends req under the per-call timeout with transport-level retry and
// returns the response body of a 200 response. Any other outcome becomes a
// *ProviderError.
func (o Options) do(ctx context.Context, provider string, req *http.Request) ([]byte, error) {
	ctx, cancel := httputil.WithTimeout(ctx, o.Timeout)
	defer cancel()

	resp, err := httputil.DoWithRetry(ctx, o.client(), req, o.MaxRetries, o.logger())
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(truncate(string(body), 300)),
		}
	}
	return body, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
