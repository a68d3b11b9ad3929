// File: internal/history/history.go
package history

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/executor"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
)

// Entry is everything recorded for one loop iteration.
type Entry struct {
	Iteration    int                   `json:"iteration"`
	StartedAt    time.Time             `json:"started_at"`
	Context      perception.AppContext `json:"context"`
	ElementCount int                   `json:"element_count"`
	Plan         *planner.Plan         `json:"plan,omitempty"`
	Outcomes     []executor.Outcome    `json:"outcomes,omitempty"`
}

// Store is an ephemeral, in-memory run history. Iterations are recorded
// incrementally as each phase of the loop finishes, and summarized back into
// prompts so the planner can see what it already tried.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	log     *zap.Logger
}

// NewStore creates an empty history store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{log: logger.Named("history")}
}

// RecordPerception opens the entry for an iteration. Recording the same
// iteration twice overwrites the earlier perception but keeps nothing else.
func (s *Store) RecordPerception(iteration int, snapshot *planner.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Iteration: iteration, StartedAt: time.Now().UTC()}
	if snapshot != nil {
		entry.Context = snapshot.Context
		entry.ElementCount = len(snapshot.UIElements)
		entry.StartedAt = snapshot.Timestamp
	}

	if i, ok := s.indexLocked(iteration); ok {
		s.entries[i] = entry
		return
	}
	s.entries = append(s.entries, entry)
	s.log.Debug("Iteration opened", zap.Int("iteration", iteration), zap.Int("elements", entry.ElementCount))
}

// RecordPlan attaches the oracle's plan to the iteration's entry.
func (s *Store) RecordPlan(iteration int, plan planner.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexLocked(iteration)
	if !ok {
		s.entries = append(s.entries, Entry{Iteration: iteration, StartedAt: time.Now().UTC()})
		i = len(s.entries) - 1
	}
	s.entries[i].Plan = &plan
}

// RecordOutcome appends one step outcome to the iteration's entry.
func (s *Store) RecordOutcome(iteration int, outcome executor.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.indexLocked(iteration)
	if !ok {
		s.entries = append(s.entries, Entry{Iteration: iteration, StartedAt: time.Now().UTC()})
		i = len(s.entries) - 1
	}
	s.entries[i].Outcomes = append(s.entries[i].Outcomes, outcome)
}

// Entries returns a copy of all recorded iterations in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len reports the number of recorded iterations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Summary renders the last n iterations as a compact digest for prompts.
// Returns the empty string when nothing has been recorded.
func (s *Store) Summary(n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || n <= 0 {
		return ""
	}
	start := len(s.entries) - n
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	for _, entry := range s.entries[start:] {
		fmt.Fprintf(&b, "Iteration %d (%s, %d elements):", entry.Iteration, entry.Context.AppName, entry.ElementCount)
		if entry.Plan == nil {
			b.WriteString(" no plan\n")
			continue
		}
		fmt.Fprintf(&b, " confidence=%.2f\n", entry.Plan.Confidence)
		for i, step := range entry.Plan.Steps {
			fmt.Fprintf(&b, "  - %s %s", step.Op, step.Target)
			if i < len(entry.Outcomes) {
				o := entry.Outcomes[i]
				if o.Success {
					fmt.Fprintf(&b, " -> ok: %s", o.Result)
				} else {
					fmt.Fprintf(&b, " -> FAILED [%s]: %s", o.ErrorCode, o.Err)
				}
			} else {
				b.WriteString(" -> not attempted")
			}
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ConsecutiveFailures counts how many of the most recent iterations ended
// with a failed step and no successes.
func (s *Store) ConsecutiveFailures() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for i := len(s.entries) - 1; i >= 0; i-- {
		if !iterationFailed(s.entries[i]) {
			break
		}
		count++
	}
	return count
}

func iterationFailed(entry Entry) bool {
	if len(entry.Outcomes) == 0 {
		return false
	}
	for _, o := range entry.Outcomes {
		if o.Success {
			return false
		}
	}
	return true
}

// indexLocked finds the entry for an iteration. Caller holds the lock.
func (s *Store) indexLocked(iteration int) (int, bool) {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Iteration == iteration {
			return i, true
		}
	}
	return 0, false
}
