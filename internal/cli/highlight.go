package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/audit"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/pages"
	"github.com/dgallion1/docmark/internal/pipeline"
	"github.com/dgallion1/docmark/internal/profile"
	"github.com/dgallion1/docmark/internal/score"
	"github.com/dgallion1/docmark/internal/selector"
)

var (
	hlProfileFile string
	hlGoal        string
	hlDensity     float64
	hlThreshold   float64
	hlPages       string
	hlStream      bool
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [file]",
	Short: "Select highlights for a reader profile",
	Long: `Scores every chunk of a document against a reader profile and prints
the selected highlights as JSON.

With --stream, chunks are scored batch by batch and each highlight is
printed as one JSON line as soon as it is selected. Interrupting a
streaming run lets the in-flight batch finish and keeps what was printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	highlightCmd.Flags().StringVarP(&hlProfileFile, "profile-file", "p", "", "reader profile (.toml, .yaml or plain text)")
	highlightCmd.Flags().StringVarP(&hlGoal, "goal", "g", "", "document goal (overrides the profile file)")
	highlightCmd.Flags().Float64Var(&hlDensity, "density", 0, "fraction of words to highlight (default from profile or SELECTION_DEFAULT_DENSITY)")
	highlightCmd.Flags().Float64Var(&hlThreshold, "threshold", 0, "minimum relevance (default from profile or SELECTION_MIN_THRESHOLD)")
	highlightCmd.Flags().StringVar(&hlPages, "pages", "", `1-based page ranges, e.g. "3-6,9"`)
	highlightCmd.Flags().BoolVar(&hlStream, "stream", false, "emit highlights as they are selected")
	_ = highlightCmd.MarkFlagRequired("profile-file")
	rootCmd.AddCommand(highlightCmd)
}

type highlightOutput struct {
	Reason        string               `json:"reason"`
	TotalWords    int                  `json:"total_words"`
	TargetWords   int                  `json:"target_words"`
	SelectedWords int                  `json:"selected_words"`
	FallbackUsed  bool                 `json:"fallback_used"`
	Cancelled     bool                 `json:"cancelled,omitempty"`
	Highlights    []annotate.Highlight `json:"highlights"`
}

func runHighlight(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Scorer.Validate(); err != nil {
		return fmt.Errorf("scorer configuration: %w", err)
	}

	prof, err := profile.Load(hlProfileFile)
	if err != nil {
		return err
	}
	goal := prof.Goal
	if hlGoal != "" {
		goal = hlGoal
	}
	if goal == "" {
		return pipeline.ErrMissingProfile
	}

	doc, err := parseFile(args[0])
	if err != nil {
		return err
	}

	spec := prof.Pages
	if hlPages != "" {
		spec = hlPages
	}
	filter, err := pages.Parse(spec, len(doc.Pages))
	if err != nil {
		return err
	}

	params := selector.Params{
		Density:      firstPositive(hlDensity, prof.Density, cfg.Selection.DefaultDensity),
		MinThreshold: firstPositive(hlThreshold, prof.Threshold, cfg.Selection.MinThreshold),
		Pages:        filter,
		BatchSize:    cfg.Selection.BatchSize,
		SoftCap:      cfg.Selection.SoftCap,
	}
	params.Density = annotate.ClampDensity(params.Density)

	chunks := chunker.ExtractChunks(doc, chunkConfig(cfg.Chunk))
	log.Debug("extracted chunks", "file", args[0], "pages", len(doc.Pages), "chunks", len(chunks))

	ctx := context.Background()
	client, err := newScorer(ctx, cfg.Scorer, score.NewLLMStats(time.Hour))
	if err != nil {
		return err
	}
	defer client.Close()
	s := pipeline.WithRetry(client, log)

	mode := "batch"
	var res selector.Result
	if hlStream {
		mode = "streaming"
		res, err = streamHighlights(ctx, cmd, chunks, s, prof.Profile, goal, params)
	} else {
		res, err = batchHighlights(ctx, chunks, s, prof.Profile, goal, params)
	}

	aw := audit.NewWriter(cfg.AuditDir)
	if path, auditErr := aw.Write(audit.FromResult(audit.Meta{
		Filename:  args[0],
		Mode:      mode,
		Provider:  client.Provider(),
		Profile:   prof.Profile,
		Goal:      goal,
		Density:   params.Density,
		Threshold: params.MinThreshold,
	}, res)); auditErr != nil {
		log.Warn("audit write failed", "error", auditErr)
	} else if path != "" {
		log.Debug("audit written", "path", path)
	}

	if err != nil {
		return err
	}
	if hlStream {
		log.Info("streaming finished", "reason", res.Reason, "highlights", len(res.Highlights))
		return nil
	}
	return printJSON(cmd, highlightOutput{
		Reason:        res.Reason,
		TotalWords:    res.TotalWords,
		TargetWords:   res.TargetWords,
		SelectedWords: res.SelectedWords,
		FallbackUsed:  res.FallbackUsed,
		Cancelled:     res.Cancelled,
		Highlights:    res.Highlights,
	})
}

func batchHighlights(ctx context.Context, chunks []chunker.TextChunk, s score.Scorer, prof, goal string, p selector.Params) (selector.Result, error) {
	chunks = selector.FilterPages(chunks, p.Pages)
	scores, err := score.ScoreAll(ctx, s, chunks, prof, goal, p.BatchSize)
	if err != nil {
		return selector.Result{Chunks: chunks}, err
	}
	return selector.Select(chunks, scores, p), nil
}

// interrupt turns SIGINT/SIGTERM into a cancel flag without cancelling the
// scoring context.
type interrupt struct {
	ctx context.Context
}

func (i interrupt) Cancelled() bool { return i.ctx.Err() != nil }

func streamHighlights(ctx context.Context, cmd *cobra.Command, chunks []chunker.TextChunk, s score.Scorer, prof, goal string, p selector.Params) (selector.Result, error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	return selector.Stream(ctx, chunks, s, prof, goal, p, interrupt{ctx: sigCtx}, func(h annotate.Highlight) {
		_ = enc.Encode(h)
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
