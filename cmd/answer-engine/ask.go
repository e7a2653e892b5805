// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/citation"
	"github.com/pdiddy/answer-engine/internal/history"
	"github.com/pdiddy/answer-engine/internal/orchestrator"
	"github.com/pdiddy/answer-engine/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a Python question through the quality-gated pipeline",
	Long: `Ask researches the question against the local document library and tiered
web search, drafts an answer, and runs it through the structure, compile, and
enrich stages. Progress events stream to stderr; the final answer and its
citations go to stdout.

Every run is recorded in the history table unless --no-history is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}
	depth, _ := cmd.Flags().GetString("depth")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noHistory, _ := cmd.Flags().GetBool("no-history")

	cfg, err := loadPipelineConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	eng, err := openEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	events := make(chan types.Event, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range events {
			if !quiet {
				fmt.Fprintln(os.Stderr, formatEvent(e))
			}
		}
	}()

	o, err := eng.orchestrator(depth, orchestrator.ChannelSink(events))
	if err != nil {
		close(events)
		wg.Wait()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	state, err := o.Run(ctx, question, nil)
	close(events)
	wg.Wait()
	if err != nil {
		return err
	}

	if !noHistory {
		store, err := history.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		if _, err := store.Save(ctx, state); err != nil {
			logger.Warn("ask: recording run failed", zap.String("run_id", state.RunID), zap.Error(err))
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history.FromState(state))
	}
	return writeAnswer(os.Stdout, state)
}

// writeAnswer prints the answer followed by the citations it uses.
func writeAnswer(w io.Writer, state types.PipelineState) error {
	if _, err := fmt.Fprintln(w, state.Answer()); err != nil {
		return err
	}
	if state.Aborted() {
		fmt.Fprintf(w, "\n(stopped at %s: %s; showing %s)\n", state.Abort.AtStage, state.Abort.Reason, state.FinalStage)
	}
	used := citation.Used(state.Answer(), state.Citations)
	if len(used) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nSources:")
	for _, c := range used {
		fmt.Fprintf(w, "  [%s] %s\n", c.ID, c.SourceRef)
	}
	return nil
}

// formatEvent renders one progress event as a single line.
func formatEvent(e types.Event) string {
	switch p := e.Payload.(type) {
	case orchestrator.StatusPayload:
		if p.Attempt > 1 {
			return fmt.Sprintf("[%s] %s (attempt %d)", e.Stage, p.Message, p.Attempt)
		}
		return fmt.Sprintf("[%s] %s", e.Stage, p.Message)
	case []types.RetrievalResult:
		return fmt.Sprintf("[%s] %d documents", e.Stage, len(p))
	case []types.WebResult:
		return fmt.Sprintf("[%s] %d web results", e.Stage, len(p))
	case types.EvaluationReport:
		verdict := "failed"
		if p.Passed {
			verdict = "passed"
		}
		return fmt.Sprintf("[%s] %s %.1f/%.0f %s", e.Stage, p.Rubric, p.TotalScore, p.Threshold, verdict)
	case orchestrator.AnswerPayload:
		return fmt.Sprintf("[answer] from %s", p.FinalStage)
	case orchestrator.DonePayload:
		if p.Aborted {
			return fmt.Sprintf("[done] run %s aborted at %s: %s", p.RunID, p.AbortStage, p.AbortReason)
		}
		return fmt.Sprintf("[done] run %s, citation preservation %.0f%%", p.RunID, p.CitationPreservation*100)
	default:
		return fmt.Sprintf("[%s] %s", e.Stage, e.Type)
	}
}

func init() {
	askCmd.Flags().String("depth", "", "research depth: quick, standard, or deep (default from config)")
	askCmd.Flags().Bool("json", false, "print the recorded run as JSON")
	askCmd.Flags().Bool("quiet", false, "suppress progress events")
	askCmd.Flags().Bool("no-history", false, "do not record the run")

	rootCmd.AddCommand(askCmd)
}
