package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/audit"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/selector"
)

// execute runs the streaming selection for one run and records the outcome.
func (c *Coordinator) execute(ctx context.Context, run *Run, req Request) {
	log := c.log.With("run_id", run.ID, "doc_id", run.DocID)
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("run panicked", "panic", p)
			run.finish(StateError, "", fmt.Sprintf("internal error: %v", p), "")
		}
	}()

	profile, goal, density := req.Doc.Profile()
	if req.Density != nil {
		density = annotate.ClampDensity(*req.Density)
	}
	threshold := c.selCfg.MinThreshold
	if req.MinThreshold != nil {
		threshold = *req.MinThreshold
	}

	var chunks []chunker.TextChunk
	if req.Layout != nil {
		chunks = chunker.ExtractChunks(req.Layout, c.chunkCfg)
	}
	if len(chunks) == 0 {
		log.Warn("no chunks extracted")
	} else {
		log.Info("chunked document", "chunks", len(chunks))
	}

	params := selector.Params{
		Density:      density,
		MinThreshold: threshold,
		Pages:        req.Pages,
		BatchSize:    c.selCfg.BatchSize,
		SoftCap:      c.selCfg.SoftCap,
	}
	scorer := &retryScorer{inner: c.scorer, backoff: c.backoff, log: log}

	res, err := selector.Stream(ctx, chunks, scorer, profile, goal, params, run, func(h annotate.Highlight) {
		req.Doc.AddHighlight(h)
		run.incEmitted()
	})

	auditPath, auditErr := c.audit.Write(audit.FromResult(audit.Meta{
		RunID:      run.ID,
		DocumentID: run.DocID,
		Filename:   req.Doc.Filename,
		Mode:       "streaming",
		Provider:   c.provider,
		Profile:    profile,
		Goal:       goal,
		Density:    density,
		Threshold:  params.MinThreshold,
	}, res))
	if auditErr != nil {
		log.Warn("audit write failed", "error", auditErr)
	}

	log = log.With("emitted", len(res.Highlights), "reason", res.Reason, "duration_ms", time.Since(start).Milliseconds())
	switch {
	case err != nil:
		log.Error("run failed", "error", err)
		run.finish(StateError, res.Reason, err.Error(), auditPath)
	case run.Cancelled():
		log.Info("run cancelled")
		run.finish(StateCancelled, res.Reason, "", auditPath)
	default:
		log.Info("run completed", "fallback", res.FallbackUsed)
		run.finish(StateCompleted, res.Reason, "", auditPath)
	}
}
