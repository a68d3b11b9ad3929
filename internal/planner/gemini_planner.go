// File: internal/planner/gemini_planner.go
package planner

import (
	"context"
	"fmt"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/axdriver/axdriver-cli/internal/llmclient"
)

// Planner decides what to do next. Implementations must never fabricate
// element IDs: every targeted step references an ID from the snapshot, or
// the system-wide TargetAll.
type Planner interface {
	PlanNext(ctx context.Context, goal string, snapshot *Snapshot, longRange *LongRangePlan) (*Plan, error)
	PlanLongRange(ctx context.Context, goal, targetApp string, snapshot *Snapshot) (*LongRangePlan, error)
	ChooseApp(ctx context.Context, goal string, candidates []string) (string, error)
}

// GeminiPlanner implements Planner over the shared Gemini client.
type GeminiPlanner struct {
	client      llmclient.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
	temperature float32
}

var _ Planner = (*GeminiPlanner)(nil)

// NewGeminiPlanner builds the planner. The limiter is shared with the vision
// adapter so combined oracle traffic respects one pacing floor.
func NewGeminiPlanner(client llmclient.Client, limiter *rate.Limiter, temperature float32, logger *zap.Logger) *GeminiPlanner {
	return &GeminiPlanner{
		client:      client,
		limiter:     limiter,
		logger:      logger.Named("planner"),
		temperature: temperature,
	}
}

const planSystemPrompt = `You are the planning mind of a desktop automation agent.
You receive the accessibility elements of the active application (each with an authoritative id),
the ambient system state, a visual analysis of the screen, and the user's goal.

Respond with a single JSON object:
{
  "plan": [
    {"action": "click|type|keystroke|key|select|scroll|wait|launch_app",
     "target": "<element id from the list, or \"all\" for system-wide keyboard input>",
     "text": "for type/keystroke",
     "key": "for key (enter, space, tab, escape, delete)",
     "option": "for select",
     "direction": "for scroll (up, down, left, right)",
     "duration_seconds": 1.0,
     "app": "for launch_app",
     "reason": "why this step"}
  ],
  "confidence": 0.0,
  "reasoning": "your analysis",
  "alternatives": [],
  "risks": [],
  "next_step": "what you expect to do after this plan"
}

Rules:
- NEVER invent element ids. Only use ids from the element list, or "all".
- If no listed element can advance the goal, emit a keystroke step with target "all".
- Prefer the smallest plan that makes observable progress; the agent executes one step, re-perceives, and asks you again.
- confidence is your honest estimate, between 0.0 and 1.0, that this plan advances the goal.`

// PlanNext asks the oracle for the next short plan toward the goal.
func (p *GeminiPlanner) PlanNext(ctx context.Context, goal string, snapshot *Snapshot, longRange *LongRangePlan) (*Plan, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	response, err := p.client.Generate(ctx, llmclient.GenerationRequest{
		SystemPrompt:    planSystemPrompt,
		UserPrompt:      p.buildPlanPrompt(goal, snapshot, longRange),
		Temperature:     p.temperature,
		ForceJSONFormat: true,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	plan, err := parsePlanResponse(response)
	if err != nil {
		p.logger.Warn("Failed to parse plan response",
			zap.String("raw_response", response),
			zap.Error(err))
		return nil, err
	}

	p.logger.Debug("Plan received",
		zap.Int("steps", len(plan.Steps)),
		zap.Float64("confidence", plan.Confidence))
	return plan, nil
}

const longRangeSystemPrompt = `You are the strategic layer of a desktop automation agent.
Given a goal, the target application, and the current screen, sketch how the whole task should unfold.

Respond with a single JSON object:
{
  "goal": "restated goal",
  "end_state": "what the screen looks like when done",
  "success_criteria": ["observable conditions"],
  "completion_indicators": ["UI changes that signal completion, e.g. \"the button changes from Play to Pause\""],
  "steps": ["coarse step descriptions"],
  "obstacles": ["likely obstacles"],
  "alternatives": ["fallback approaches"]
}`

// PlanLongRange asks the oracle for the strategic sketch. Runs once per run,
// best effort.
func (p *GeminiPlanner) PlanLongRange(ctx context.Context, goal, targetApp string, snapshot *Snapshot) (*LongRangePlan, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\nTarget application: %s\n", goal, targetApp)
	if snapshot != nil {
		sb.WriteString(elementsDigest(snapshot))
	}

	response, err := p.client.Generate(ctx, llmclient.GenerationRequest{
		SystemPrompt:    longRangeSystemPrompt,
		UserPrompt:      sb.String(),
		Temperature:     p.temperature,
		ForceJSONFormat: true,
	})
	if err != nil {
		return nil, fmt.Errorf("long-range plan generation failed: %w", err)
	}

	var plan LongRangePlan
	if err := json.Unmarshal([]byte(llmclient.ExtractJSON(response)), &plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal long-range plan: %w", err)
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	return &plan, nil
}

const chooseAppSystemPrompt = `You select which running application best serves a user's automation goal.
Respond with a single JSON object: {"app": "<exactly one name from the candidate list>", "reason": "why"}`

// ChooseApp picks a target application from the candidate list. The answer
// must be one of the candidates; anything else is an error.
func (p *GeminiPlanner) ChooseApp(ctx context.Context, goal string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", fmt.Errorf("no candidate applications to choose from")
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	prompt := fmt.Sprintf("Goal: %s\nCandidate applications:\n- %s", goal, strings.Join(candidates, "\n- "))
	response, err := p.client.Generate(ctx, llmclient.GenerationRequest{
		SystemPrompt:    chooseAppSystemPrompt,
		UserPrompt:      prompt,
		Temperature:     p.temperature,
		ForceJSONFormat: true,
	})
	if err != nil {
		return "", fmt.Errorf("app selection failed: %w", err)
	}

	var choice struct {
		App string `json:"app"`
	}
	if err := json.Unmarshal([]byte(llmclient.ExtractJSON(response)), &choice); err != nil {
		return "", fmt.Errorf("failed to unmarshal app choice: %w", err)
	}

	for _, candidate := range candidates {
		if strings.EqualFold(strings.TrimSpace(choice.App), candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("oracle chose %q, which is not a running application", choice.App)
}

// buildPlanPrompt assembles the per-iteration user prompt from the snapshot.
func (p *GeminiPlanner) buildPlanPrompt(goal string, snapshot *Snapshot, longRange *LongRangePlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\n", goal)

	if snapshot != nil {
		ctx := snapshot.Context
		if ctx.AppName != "" {
			fmt.Fprintf(&sb, "Active application: %s", ctx.AppName)
			if ctx.WindowTitle != "" {
				fmt.Fprintf(&sb, " (window: %s)", ctx.WindowTitle)
			}
			sb.WriteString("\n")
		}

		state := snapshot.SystemState
		fmt.Fprintf(&sb, "System: battery=%d%% (%s), network=%s, cpu=%.0f%%, mem=%.0f%%, time=%s\n",
			state.BatteryLevel, state.PowerSource, state.NetworkStatus,
			state.CPUUsage, state.MemoryUsage, state.Time)

		sb.WriteString(elementsDigest(snapshot))

		if snapshot.VisualAnalysis != nil {
			fmt.Fprintf(&sb, "\nVisual read of the screen: %s\n", snapshot.VisualAnalysis.ScreenDescription)
			for _, warning := range snapshot.VisualAnalysis.SafetyWarnings {
				fmt.Fprintf(&sb, "Visual warning: %s\n", warning)
			}
		}

		if snapshot.Correlations != nil && len(snapshot.Correlations.Correlations) > 0 {
			sb.WriteString("\nConfirmed accessibility/visual matches:\n")
			for _, corr := range snapshot.Correlations.Correlations {
				fmt.Fprintf(&sb, "- %s <-> %q (%s), score %d\n",
					corr.UIElementID, corr.Visual.Text, corr.Visual.Purpose, corr.Score)
			}
		}

		if snapshot.History != "" {
			fmt.Fprintf(&sb, "\nRecent iterations:\n%s\n", snapshot.History)
		}
	}

	if longRange != nil {
		fmt.Fprintf(&sb, "\nStrategic plan: %s\nExpected end state: %s\n", longRange.Goal, longRange.EndState)
		if len(longRange.Steps) > 0 {
			fmt.Fprintf(&sb, "Coarse steps: %s\n", strings.Join(longRange.Steps, "; "))
		}
	}

	sb.WriteString("\nProduce the next plan.")
	return sb.String()
}

// elementsDigest renders the element list with authoritative IDs first on
// each line, so the oracle cannot miss them.
func elementsDigest(snapshot *Snapshot) string {
	if len(snapshot.UIElements) == 0 {
		return "No interactive elements are currently visible.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Interactive elements (%d):\n", len(snapshot.UIElements))
	for _, el := range snapshot.UIElements {
		fmt.Fprintf(&sb, "- id=%s role=%s title=%q", el.ID, el.Role, el.Title.Text)
		if el.CurrentValue != "" {
			fmt.Fprintf(&sb, " value=%q", el.CurrentValue)
		}
		if len(el.AvailableOptions) > 0 {
			fmt.Fprintf(&sb, " options=[%s]", strings.Join(el.AvailableOptions, ", "))
		}
		if !el.Enabled {
			sb.WriteString(" (disabled)")
		}
		if el.Focused {
			sb.WriteString(" (focused)")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// wireStep mirrors ActionStep with the raw action string so unknown
// operations can be rejected with a useful error.
type wireStep struct {
	Action          string  `json:"action"`
	Target          string  `json:"target"`
	Text            string  `json:"text"`
	Key             string  `json:"key"`
	Option          string  `json:"option"`
	Direction       string  `json:"direction"`
	DurationSeconds float64 `json:"duration_seconds"`
	AppName         string  `json:"app"`
	Reason          string  `json:"reason"`
}

type wirePlan struct {
	Plan         []wireStep `json:"plan"`
	Confidence   float64    `json:"confidence"`
	Reasoning    string     `json:"reasoning"`
	Alternatives []string   `json:"alternatives"`
	Risks        []string   `json:"risks"`
	NextStep     string     `json:"next_step"`
}

// parsePlanResponse extracts and validates the oracle's plan JSON. Every
// step operation must parse; confidence is clamped to [0, 1].
func parsePlanResponse(response string) (*Plan, error) {
	payload := llmclient.ExtractJSON(response)
	if payload == "" {
		return nil, fmt.Errorf("could not find any JSON in the oracle response")
	}

	var wire wirePlan
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, fmt.Errorf("failed to unmarshal extracted JSON: %w", err)
	}

	steps := make([]ActionStep, 0, len(wire.Plan))
	for i, ws := range wire.Plan {
		op, err := ParseOp(ws.Action)
		if err != nil {
			return nil, fmt.Errorf("plan step %d: %w", i, err)
		}
		steps = append(steps, ActionStep{
			Op:              op,
			Target:          strings.TrimSpace(ws.Target),
			Text:            ws.Text,
			Key:             ws.Key,
			Option:          ws.Option,
			Direction:       ws.Direction,
			DurationSeconds: ws.DurationSeconds,
			AppName:         ws.AppName,
			Reason:          ws.Reason,
		})
	}

	confidence := wire.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Plan{
		Steps:        steps,
		Confidence:   confidence,
		Narrative:    wire.Reasoning,
		Alternatives: wire.Alternatives,
		Risks:        wire.Risks,
		NextStep:     wire.NextStep,
	}, nil
}
