package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunState is the lifecycle state of a highlighting run.
type RunState string

const (
	StateRunning    RunState = "running"
	StateCancelling RunState = "cancelling"
	StateCancelled  RunState = "cancelled"
	StateCompleted  RunState = "completed"
	StateError      RunState = "error"
)

// Terminal reports whether no further transitions can happen.
func (s RunState) Terminal() bool {
	return s == StateCancelled || s == StateCompleted || s == StateError
}

// Run tracks one streaming selection over one document.
type Run struct {
	mu sync.Mutex

	ID    string
	DocID string

	state     RunState
	errMsg    string
	reason    string
	auditPath string
	createdAt time.Time
	updatedAt time.Time

	emitted   atomic.Int64
	cancelled atomic.Bool
	done      chan struct{}
}

func newRun(id, docID string) *Run {
	now := time.Now()
	return &Run{
		ID:        id,
		DocID:     docID,
		state:     StateRunning,
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
	}
}

// Cancelled reports whether cancellation was requested. The selector polls
// it between batches and before each emission.
func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

// requestCancel raises the cancel flag. A running run moves to cancelling;
// terminal runs are left as they are.
func (r *Run) requestCancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.cancelled.Store(true)
	r.state = StateCancelling
	r.updatedAt = time.Now()
}

func (r *Run) incEmitted() {
	r.emitted.Add(1)
}

// finish moves the run to its terminal state and releases waiters.
func (r *Run) finish(state RunState, reason, errMsg, auditPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return
	}
	r.state = state
	r.reason = reason
	r.errMsg = errMsg
	r.auditPath = auditPath
	r.updatedAt = time.Now()
	close(r.done)
}

// Done is closed once the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// State returns the current state.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	ID        string    `json:"run_id"`
	DocID     string    `json:"doc_id"`
	State     RunState  `json:"state"`
	Emitted   int       `json:"emitted"`
	Error     string    `json:"error,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	AuditPath string    `json:"audit_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state. It never blocks on
// the worker beyond the run's own short critical section.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RunSnapshot{
		ID:        r.ID,
		DocID:     r.DocID,
		State:     r.state,
		Emitted:   int(r.emitted.Load()),
		Error:     r.errMsg,
		Reason:    r.reason,
		AuditPath: r.auditPath,
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
}

func (r *Run) expired(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Terminal() && now.Sub(r.updatedAt) > ttl
}

// RunStore is a thread-safe in-memory run registry with TTL eviction of
// finished runs.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		runs: make(map[string]*Run),
		ttl:  ttl,
	}
}

func (s *RunStore) Put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Delete removes a run and reports whether it existed.
func (s *RunStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[id]
	delete(s.runs, id)
	return ok
}

// Len returns the number of registered runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Cleanup removes terminal runs not updated within the TTL. Active runs are
// never evicted.
func (s *RunStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	n := 0
	for id, run := range s.runs {
		if run.expired(now, s.ttl) {
			delete(s.runs, id)
			n++
		}
	}
	return n
}
