package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/docmark/internal/annotate"
	"github.com/dgallion1/docmark/internal/audit"
	"github.com/dgallion1/docmark/internal/chunker"
	"github.com/dgallion1/docmark/internal/config"
	"github.com/dgallion1/docmark/internal/layout"
	"github.com/dgallion1/docmark/internal/score"
)

var (
	// ErrRunNotFound is returned for unknown or evicted run ids.
	ErrRunNotFound = errors.New("run not found")
	// ErrMissingProfile is returned when a run is started on a document
	// without a reader profile or document goal.
	ErrMissingProfile = errors.New("document needs a global profile and a document goal")
	// ErrStopped is returned when runs are started after Stop.
	ErrStopped = errors.New("coordinator stopped")
)

// Request describes one highlighting run.
type Request struct {
	Doc    *annotate.Document
	Layout *layout.Document // nil when the source could not be read
	Pages  map[int]bool     // 0-based page filter; nil means every page

	// Optional per-run overrides of the document density and the
	// configured minimum threshold.
	Density      *float64
	MinThreshold *float64
}

// Coordinator starts, tracks and cancels highlighting runs. Each run works
// on its own goroutine; the run registry is the only state shared between
// them.
type Coordinator struct {
	runs     *RunStore
	scorer   score.Scorer
	provider string
	audit    *audit.Writer
	log      *slog.Logger
	chunkCfg chunker.Config
	selCfg   config.SelectionConfig
	backoff  func(int) time.Duration

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator. Call Start before submitting runs.
func NewCoordinator(cfg config.Config, scorer score.Scorer, provider string, aw *audit.Writer, log *slog.Logger) *Coordinator {
	return &Coordinator{
		runs:     NewRunStore(cfg.RunTTL),
		scorer:   scorer,
		provider: provider,
		audit:    aw,
		log:      log,
		chunkCfg: chunker.Config{
			MaxChars:      cfg.Chunk.MaxChars,
			MergeDistance: cfg.Chunk.MergeDistance,
		},
		selCfg:  cfg.Selection,
		backoff: Backoff,
	}
}

// Start sets the lifecycle context for runs and launches registry cleanup.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if n := c.runs.Cleanup(); n > 0 {
					c.log.Info("evicted finished runs", "count", n)
				}
			}
		}
	}()
}

// Stop cancels in-flight scoring calls and waits for every run to finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// StartRun validates the request, registers a new run and launches its
// worker. The returned snapshot is in state running.
func (c *Coordinator) StartRun(req Request) (RunSnapshot, error) {
	if req.Doc == nil {
		return RunSnapshot{}, errors.New("no document")
	}
	profile, goal, _ := req.Doc.Profile()
	if strings.TrimSpace(profile) == "" || strings.TrimSpace(goal) == "" {
		return RunSnapshot{}, ErrMissingProfile
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || c.ctx == nil {
		return RunSnapshot{}, ErrStopped
	}

	run := newRun(uuid.NewString(), req.Doc.ID)
	c.runs.Put(run)
	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.execute(ctx, run, req)
	}()

	c.log.Info("run started", "run_id", run.ID, "doc_id", run.DocID)
	return run.Snapshot(), nil
}

// Poll returns the current state of a run.
func (c *Coordinator) Poll(id string) (RunSnapshot, error) {
	run := c.runs.Get(id)
	if run == nil {
		return RunSnapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run.Snapshot(), nil
}

// Cancel asks a run to stop. The worker notices at its next batch or
// emission boundary; an in-flight scoring call is not interrupted.
func (c *Coordinator) Cancel(id string) (RunSnapshot, error) {
	run := c.runs.Get(id)
	if run == nil {
		return RunSnapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run.requestCancel()
	return run.Snapshot(), nil
}

// Delete removes a run from the registry, cancelling it first if it is
// still active.
func (c *Coordinator) Delete(id string) error {
	run := c.runs.Get(id)
	if run == nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	run.requestCancel()
	c.runs.Delete(id)
	return nil
}

// DeleteForDoc deletes every run that targets docID and returns how many
// were removed.
func (c *Coordinator) DeleteForDoc(docID string) int {
	c.runs.mu.Lock()
	var ids []string
	for id, r := range c.runs.runs {
		if r.DocID == docID {
			ids = append(ids, id)
		}
	}
	c.runs.mu.Unlock()

	n := 0
	for _, id := range ids {
		if c.Delete(id) == nil {
			n++
		}
	}
	return n
}

// Run returns a registered run, or nil.
func (c *Coordinator) Run(id string) *Run {
	return c.runs.Get(id)
}

// ActiveRuns counts runs that have not reached a terminal state.
func (c *Coordinator) ActiveRuns() int {
	c.runs.mu.Lock()
	defer c.runs.mu.Unlock()
	n := 0
	for _, r := range c.runs.runs {
		if !r.State().Terminal() {
			n++
		}
	}
	return n
}
