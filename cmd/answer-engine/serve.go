// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer_question tool over MCP stdio",
	Long: `Serve runs an MCP server on stdin/stdout exposing one tool, answer_question.
Each call runs the full pipeline and is recorded in history. Logs go to
stderr so they never interleave with the protocol stream.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadPipelineConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	eng, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	runs, err := history.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer runs.Close()

	srv := &mcpserver.Server{
		Answerers: func(depth string) (mcpserver.Answerer, error) {
			return eng.orchestrator(depth, nil)
		},
		Recorder: runs,
		Version:  version,
		Logger:   logger,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return srv.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
