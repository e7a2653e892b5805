// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/generate"
	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/orchestrator"
	"github.com/pdiddy/answer-engine/internal/research"
	"github.com/pdiddy/answer-engine/internal/vectorstore"
	"github.com/pdiddy/answer-engine/internal/websearch"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// engine holds the long-lived clients shared by every run.
type engine struct {
	cfg      types.PipelineConfig
	chat     llm.ChatProvider
	embedder *llm.OpenAIEmbedder
	vectors  *vectorstore.Store
	research *research.Coordinator
	log      *zap.Logger
}

// openEngine builds the provider clients, opens the vector store, and
// assembles the research coordinator.
func openEngine(cfg types.PipelineConfig, log *zap.Logger) (*engine, error) {
	client := httputil.NewClient(cfg.HTTP)

	chat, err := llm.NewChatProvider(cfg.Chat, llm.Options{
		Client:     client,
		Timeout:    cfg.Timeouts.Chat,
		MaxRetries: cfg.HTTP.MaxRetries,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	embedder := llm.NewEmbedder(cfg.Embedding, llm.Options{
		Client:     client,
		Timeout:    cfg.Timeouts.Embed,
		MaxRetries: cfg.HTTP.MaxRetries,
		Logger:     log,
	})

	vectors, err := vectorstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	tiers := research.DefaultTiers
	if cfg.Research.TiersFile != "" {
		if tiers, err = research.LoadTiers(cfg.Research.TiersFile); err != nil {
			vectors.Close()
			return nil, err
		}
	}

	coord := &research.Coordinator{
		Embedder:        embedder,
		Store:           vectors,
		Tiers:           tiers,
		MaxDistance:     cfg.Research.MaxDistance,
		AlwaysWebSearch: cfg.Research.AlwaysWebSearch,
		Timeouts: research.Timeouts{
			Embed:        cfg.Timeouts.Embed,
			VectorSearch: cfg.Timeouts.VectorSearch,
			WebSearch:    cfg.Timeouts.WebSearch,
		},
		Logger: log,
	}
	if web := webSearcher(cfg, client, log); web != nil {
		coord.Web = web
	} else {
		log.Warn("engine: web search disabled, no tavily API key")
	}

	return &engine{
		cfg:      cfg,
		chat:     chat,
		embedder: embedder,
		vectors:  vectors,
		research: coord,
		log:      log,
	}, nil
}

// webSearcher returns nil when no Tavily key is configured.
func webSearcher(cfg types.PipelineConfig, client *http.Client, log *zap.Logger) research.WebSearcher {
	if cfg.Research.TavilyAPIKey == "" {
		return nil
	}
	tavily := &websearch.TavilyClient{
		APIKey:     cfg.Research.TavilyAPIKey,
		Client:     client,
		Timeout:    cfg.Timeouts.WebSearch,
		MaxRetries: cfg.HTTP.MaxRetries,
		Logger:     log,
	}
	if !cfg.Research.FillSummaries {
		return tavily
	}
	return &websearch.FillingSearcher{
		Next: tavily,
		Fetcher: &websearch.PageFetcher{
			Client:    client,
			Timeout:   cfg.Timeouts.WebSearch,
			UserAgent: cfg.HTTP.UserAgent,
			Logger:    log,
		},
		Logger: log,
	}
}

// orchestrator builds an orchestrator for one depth profile. An empty depth
// keeps the configured one.
func (e *engine) orchestrator(depth string, sink orchestrator.EventSink) (*orchestrator.Orchestrator, error) {
	ocfg, err := orchestrator.ConfigFromPipeline(e.cfg)
	if err != nil {
		return nil, err
	}
	if depth != "" {
		if ocfg.Depth, err = research.ParseDepth(depth); err != nil {
			return nil, err
		}
	}

	comps := orchestrator.Components{
		Research: e.research,
		Generator: &generate.Generator{
			Chat:        e.chat,
			Temperature: e.cfg.Stages.Temperatures.Technical,
			Timeout:     e.cfg.Timeouts.Chat,
			Logger:      e.log,
		},
		Transformer: &generate.Transformer{
			Chat:       e.chat,
			Timeout:    e.cfg.Timeouts.Chat,
			Logger:     e.log,
			Complexity: e.cfg.Stages.Complexity,
		},
	}
	o, err := orchestrator.NewBuilder(ocfg, comps, sink).WithLogger(e.log).Build()
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	return o, nil
}

func (e *engine) Close() error {
	return e.vectors.Close()
}
