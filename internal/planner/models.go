// File: internal/planner/models.go
package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/axdriver/axdriver-cli/internal/correlate"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/vision"
)

// Op is the closed set of operations the executor understands. Anything the
// oracle emits outside this set is rejected at the plan boundary.
type Op string

const (
	OpClick     Op = "click"
	OpType      Op = "type"
	OpKeystroke Op = "keystroke"
	OpKey       Op = "key"
	OpSelect    Op = "select"
	OpScroll    Op = "scroll"
	OpWait      Op = "wait"
	OpLaunchApp Op = "launch_app"
)

// TargetAll routes keyboard input system-wide instead of at one element.
const TargetAll = "all"

// ParseOp normalizes and validates an operation name from oracle output.
func ParseOp(s string) (Op, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "")
	switch normalized {
	case "click":
		return OpClick, nil
	case "type":
		return OpType, nil
	case "keystroke":
		return OpKeystroke, nil
	case "key":
		return OpKey, nil
	case "select":
		return OpSelect, nil
	case "scroll":
		return OpScroll, nil
	case "wait":
		return OpWait, nil
	case "launchapp":
		return OpLaunchApp, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// ActionStep is one executable unit. Which fields matter depends on Op:
// Target for click/type/select/scroll/key at an element, Text for
// type/keystroke, Key for key, Option for select, Direction for scroll,
// DurationSeconds for wait, AppName for launch_app.
type ActionStep struct {
	Op              Op      `json:"action"`
	Target          string  `json:"target,omitempty"`
	Text            string  `json:"text,omitempty"`
	Key             string  `json:"key,omitempty"`
	Option          string  `json:"option,omitempty"`
	Direction       string  `json:"direction,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	AppName         string  `json:"app,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

// Plan is one reasoning round: an ordered step list with the oracle's own
// confidence in it.
type Plan struct {
	Steps        []ActionStep `json:"plan"`
	Confidence   float64      `json:"confidence"`
	Narrative    string       `json:"reasoning"`
	Alternatives []string     `json:"alternatives,omitempty"`
	Risks        []string     `json:"risks,omitempty"`
	NextStep     string       `json:"next_step,omitempty"`
}

// LongRangePlan is the once-per-run strategic sketch. It steers prompts and
// goal checking but individual steps always come from per-iteration plans.
type LongRangePlan struct {
	Goal                 string   `json:"goal"`
	EndState             string   `json:"end_state"`
	SuccessCriteria      []string `json:"success_criteria,omitempty"`
	CompletionIndicators []string `json:"completion_indicators,omitempty"`
	Steps                []string `json:"steps,omitempty"`
	Obstacles            []string `json:"obstacles,omitempty"`
	Alternatives         []string `json:"alternatives,omitempty"`
}

// Snapshot is one immutable perception round: everything the planner may see
// about the current screen. A fresh one is built every iteration.
type Snapshot struct {
	UIElements     []perception.UIElement
	SystemState    perception.SystemState
	Context        perception.AppContext
	VisualAnalysis *vision.Analysis
	Correlations   *correlate.Result
	// History is a digest of recent iterations so the oracle can see what
	// it already tried.
	History   string
	Timestamp time.Time
}

// ElementByID looks an element up by its authoritative accessibility ID.
func (s *Snapshot) ElementByID(id string) (perception.UIElement, bool) {
	for _, el := range s.UIElements {
		if el.ID == id {
			return el, true
		}
	}
	return perception.UIElement{}, false
}
