// File: internal/agent/models.go
package agent

import (
	"context"

	"github.com/axdriver/axdriver-cli/internal/history"
	"github.com/axdriver/axdriver-cli/internal/perception"
)

// State labels the control-loop phases for logging and the final report.
type State string

const (
	StateInit      State = "INIT"
	StateLongPlan  State = "LONG_PLAN"
	StatePerceive  State = "PERCEIVE"
	StateReason    State = "REASON"
	StateAct       State = "ACT"
	StateObserve   State = "OBSERVE"
	StateCheckGoal State = "CHECK_GOAL"
	StateDone      State = "DONE"
	StateAborted   State = "ABORTED"
)

// RunResult is the final report of one autonomous run.
type RunResult struct {
	RunID      string `json:"run_id"`
	Success    bool   `json:"success"`
	State      State  `json:"state"`
	Goal       string `json:"goal"`
	App        string `json:"app,omitempty"`
	Iterations int    `json:"iterations"`
	Errors     int    `json:"errors"`
	// Progress is the executed fraction of the most recent plan, in
	// [0.0, 1.0]; a successful run always reports 1.0.
	Progress   float64         `json:"progress"`
	Confidence float64         `json:"confidence"`
	LastAction string          `json:"last_action,omitempty"`
	Message    string          `json:"message"`
	History    []history.Entry `json:"history,omitempty"`
}

// Perceiver is the accessibility discovery boundary the loop consumes.
type Perceiver interface {
	Discover(ctx context.Context, targetApp string) ([]perception.UIElement, error)
	Context(ctx context.Context, targetApp string) (perception.AppContext, error)
	RunningApps(ctx context.Context) ([]string, error)
}

// Sampler supplies ambient system state for prompts.
type Sampler interface {
	Sample(ctx context.Context) perception.SystemState
}

// AppFocuser brings an application to the foreground. Focus is best-effort;
// a nil focuser disables it.
type AppFocuser interface {
	FocusApp(ctx context.Context, appName string) error
}
