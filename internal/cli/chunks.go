package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/layout"
	"github.com/dgallion1/docmark/internal/parser"
)

var (
	chunksMaxChars      int
	chunksMergeDistance float64
)

var chunksCmd = &cobra.Command{
	Use:   "chunks [file]",
	Short: "Print the chunks extracted from a document",
	Long: `Parses a document and prints its sentence-bounded chunks as JSON,
with page index and bounding boxes in top-left page coordinates.`,
	Args: cobra.ExactArgs(1),
	RunE: runChunks,
}

func init() {
	chunksCmd.Flags().IntVar(&chunksMaxChars, "max-chars", 0, "chunk character budget (default from CHUNK_MAX_CHARS)")
	chunksCmd.Flags().Float64Var(&chunksMergeDistance, "merge-distance", 0, "line gap that closes a paragraph (default from CHUNK_MERGE_DISTANCE)")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	chunkCfg := chunkConfig(cfg.Chunk)
	if chunksMaxChars > 0 {
		chunkCfg.MaxChars = chunksMaxChars
	}
	if chunksMergeDistance > 0 {
		chunkCfg.MergeDistance = chunksMergeDistance
	}

	doc, err := parseFile(args[0])
	if err != nil {
		return err
	}
	chunks := chunker.ExtractChunks(doc, chunkCfg)
	newLogger(cmd).Debug("extracted chunks", "file", args[0], "pages", len(doc.Pages), "chunks", len(chunks))

	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal chunks: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func parseFile(path string) (*layout.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	doc, err := parser.ParseFile(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func chunkConfig(c config.ChunkConfig) chunker.Config {
	return chunker.Config{MaxChars: c.MaxChars, MergeDistance: c.MergeDistance}
}
