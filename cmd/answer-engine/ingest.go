// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/internal/httputil"
	"github.com/pdiddy/answer-engine/internal/ingest"
	"github.com/pdiddy/answer-engine/internal/llm"
	"github.com/pdiddy/answer-engine/internal/vectorstore"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Load markdown and text files into the document library",
	Long: `Ingest chunks each file, embeds the chunks, and stores them in the vector
store used by retrieval. Directories are walked for .md, .markdown, and .txt
files. Re-ingesting a file replaces its previous chunks.

With --python-only, chunks that show no sign of Python content are dropped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	pythonOnly, _ := cmd.Flags().GetBool("python-only")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	cfg, err := loadPipelineConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}

	store, err := vectorstore.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	ing := &ingest.Ingester{
		Embedder: llm.NewEmbedder(cfg.Embedding, llm.Options{
			Client:     httputil.NewClient(cfg.HTTP),
			Timeout:    cfg.Timeouts.Embed,
			MaxRetries: cfg.HTTP.MaxRetries,
			Logger:     logger,
		}),
		Store:       store,
		Chunker:     ingest.Chunker{Size: cfg.Store.ChunkSize, Overlap: cfg.Store.ChunkOverlap},
		BatchSize:   cfg.Embedding.BatchSize,
		Concurrency: concurrency,
		PythonOnly:  pythonOnly,
		Logger:      logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := ing.IngestPaths(ctx, args)
	for _, f := range sum.Files {
		if f.Err != nil {
			fmt.Fprintf(os.Stderr, "FAIL  %s: %v\n", f.Path, f.Err)
			continue
		}
		fmt.Fprintf(os.Stdout, "OK    %s (%d chunks, %d dropped)\n", f.Path, f.Chunks, f.Dropped)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\n%d stored, %d failed, %d chunks\n", sum.Stored, sum.Failed, sum.Chunks)
	if sum.Stored == 0 && sum.Failed > 0 {
		return fmt.Errorf("no files ingested")
	}
	return nil
}

func init() {
	ingestCmd.Flags().Bool("python-only", false, "drop chunks without Python content")
	ingestCmd.Flags().Int("concurrency", 4, "embedding requests in flight")

	rootCmd.AddCommand(ingestCmd)
}
