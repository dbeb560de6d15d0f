// Package cli implements the docmark command line tool.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/score"
)

var verbose bool

// newScorer builds the scoring client; tests replace it with a fake.
var newScorer = func(ctx context.Context, cfg config.ScorerConfig, stats *score.LLMStats) (scorer, error) {
	c, err := score.New(ctx, cfg, stats)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// scorer is a score.Scorer that may hold resources.
type scorer interface {
	score.Scorer
	Provider() string
	Close() error
}

var rootCmd = &cobra.Command{
	Use:   "docmark",
	Short: "Highlight what matters in a document",
	Long: `docmark splits a document into sentence-bounded chunks, asks a
relevance-scoring service to rate them against a reader profile and keeps
the best ones under a density budget.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
