package pipeline

import (
	"testing"
	"time"
)

func TestRun_StateTransitions(t *testing.T) {
	run := newRun("run-1", "doc-1")
	if got := run.State(); got != StateRunning {
		t.Fatalf("expected %q, got %q", StateRunning, got)
	}
	if run.Cancelled() {
		t.Fatal("fresh run should not be cancelled")
	}

	run.requestCancel()
	if got := run.State(); got != StateCancelling {
		t.Errorf("expected %q, got %q", StateCancelling, got)
	}
	if !run.Cancelled() {
		t.Error("expected cancel flag to be set")
	}

	run.finish(StateCancelled, "cancelled", "", "")
	select {
	case <-run.Done():
	default:
		t.Fatal("Done should be closed after finish")
	}

	// Terminal runs ignore further transitions.
	run.finish(StateCompleted, "streaming_ok", "", "")
	run.requestCancel()
	if got := run.State(); got != StateCancelled {
		t.Errorf("expected state to stay %q, got %q", StateCancelled, got)
	}
}

func TestRun_CancelAfterFinishKeepsState(t *testing.T) {
	run := newRun("run-2", "doc-1")
	run.finish(StateCompleted, "streaming_ok", "", "")
	run.requestCancel()
	if run.Cancelled() {
		t.Error("finished run should not raise the cancel flag")
	}
	if got := run.State(); got != StateCompleted {
		t.Errorf("expected %q, got %q", StateCompleted, got)
	}
}

func TestRun_Snapshot(t *testing.T) {
	run := newRun("run-3", "doc-9")
	run.incEmitted()
	run.incEmitted()
	run.finish(StateError, "error_after_8_chunks: boom", "boom", "/tmp/llm_run_1.json")

	snap := run.Snapshot()
	if snap.ID != "run-3" || snap.DocID != "doc-9" {
		t.Errorf("unexpected ids: %+v", snap)
	}
	if snap.Emitted != 2 {
		t.Errorf("expected emitted 2, got %d", snap.Emitted)
	}
	if snap.State != StateError || snap.Error != "boom" {
		t.Errorf("unexpected state: %+v", snap)
	}
	if snap.AuditPath != "/tmp/llm_run_1.json" {
		t.Errorf("unexpected audit path %q", snap.AuditPath)
	}
}

func TestRunState_Terminal(t *testing.T) {
	cases := map[RunState]bool{
		StateRunning:    false,
		StateCancelling: false,
		StateCancelled:  true,
		StateCompleted:  true,
		StateError:      true,
	}
	for s, want := range cases {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestRunStore_PutGetDelete(t *testing.T) {
	s := NewRunStore(time.Hour)
	s.Put(newRun("a", "doc"))
	if s.Get("a") == nil {
		t.Fatal("expected run a")
	}
	if s.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}
	if !s.Delete("a") {
		t.Error("expected Delete to report an existing run")
	}
	if s.Delete("a") {
		t.Error("expected second Delete to report false")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}

func TestRunStore_CleanupEvictsOnlyOldTerminalRuns(t *testing.T) {
	s := NewRunStore(time.Minute)
	old := time.Now().Add(-time.Hour)

	finished := newRun("finished", "doc")
	finished.finish(StateCompleted, "", "", "")
	finished.updatedAt = old

	active := newRun("active", "doc")
	active.updatedAt = old

	recent := newRun("recent", "doc")
	recent.finish(StateCancelled, "", "", "")

	s.Put(finished)
	s.Put(active)
	s.Put(recent)

	if n := s.Cleanup(); n != 1 {
		t.Errorf("expected 1 eviction, got %d", n)
	}
	if s.Get("finished") != nil {
		t.Error("old finished run should be evicted")
	}
	if s.Get("active") == nil {
		t.Error("active run must never be evicted")
	}
	if s.Get("recent") == nil {
		t.Error("recent run should be kept")
	}
}
