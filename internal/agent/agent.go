// File: internal/agent/agent.go
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/config"
	"github.com/axdriver/axdriver-cli/internal/correlate"
	"github.com/axdriver/axdriver-cli/internal/executor"
	"github.com/axdriver/axdriver-cli/internal/history"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
	"github.com/axdriver/axdriver-cli/internal/vision"
)

// historyWindow is how many past iterations are digested into each prompt.
const historyWindow = 3

// Agent drives the closed perception/reason/act loop until the goal is
// achieved or a budget runs out. One Agent serves one run.
type Agent struct {
	cfg        config.AgentConfig
	waits      perception.LaunchWaits
	perceiver  Perceiver
	sampler    Sampler
	capturer   vision.ScreenCapturer
	analyzer   vision.Analyzer
	correlator *correlate.Correlator
	planner    planner.Planner
	executor   executor.Executor
	focuser    AppFocuser
	history    *history.Store
	logger     *zap.Logger
}

// Options carries the loop's collaborators. Capturer and Analyzer are
// optional as a pair; without them the loop runs on accessibility data
// alone. Focuser is optional.
type Options struct {
	Config     config.AgentConfig
	Waits      perception.LaunchWaits
	Perceiver  Perceiver
	Sampler    Sampler
	Capturer   vision.ScreenCapturer
	Analyzer   vision.Analyzer
	Correlator *correlate.Correlator
	Planner    planner.Planner
	Executor   executor.Executor
	Focuser    AppFocuser
	History    *history.Store
	Logger     *zap.Logger
}

// New validates the wiring and builds an Agent.
func New(opts Options) (*Agent, error) {
	if opts.Perceiver == nil {
		return nil, errors.New("agent requires a perceiver")
	}
	if opts.Planner == nil {
		return nil, errors.New("agent requires a planner")
	}
	if opts.Executor == nil {
		return nil, errors.New("agent requires an executor")
	}
	if opts.History == nil {
		opts.History = history.NewStore(opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Agent{
		cfg:        opts.Config,
		waits:      opts.Waits,
		perceiver:  opts.Perceiver,
		sampler:    opts.Sampler,
		capturer:   opts.Capturer,
		analyzer:   opts.Analyzer,
		correlator: opts.Correlator,
		planner:    opts.Planner,
		executor:   opts.Executor,
		focuser:    opts.Focuser,
		history:    opts.History,
		logger:     opts.Logger.Named("agent"),
	}, nil
}

// Run executes the full state machine for one goal. It always returns a
// result; loop-level failures end up in the result, not in an error.
func (a *Agent) Run(ctx context.Context, goal, appHint string) RunResult {
	result := RunResult{RunID: uuid.NewString(), Goal: goal, State: StateInit}
	a.logger = a.logger.With(zap.String("run_id", result.RunID))

	app, err := a.resolveTargetApp(ctx, goal, appHint)
	if err != nil {
		return a.finish(result, StateAborted, false, fmt.Sprintf("could not resolve a target application: %v", err))
	}
	result.App = app
	a.logger.Info("Target application resolved", zap.String("app", app), zap.String("goal", goal))

	if a.focuser != nil {
		if err := a.focuser.FocusApp(ctx, app); err != nil {
			a.logger.Warn("Could not focus target application", zap.String("app", app), zap.Error(err))
		}
	}

	result.State = StateLongPlan
	longRange := a.planLongRange(ctx, goal, app)

	errorCount := 0
	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		if ctx.Err() != nil {
			result.Iterations = iteration - 1
			result.Errors = errorCount
			return a.finish(result, StateAborted, false, "stopped by user")
		}
		result.Iterations = iteration
		a.logger.Info("Iteration starting", zap.Int("iteration", iteration), zap.Int("error_count", errorCount))

		result.State = StatePerceive
		snapshot, err := a.perceive(ctx, goal, app, iteration == 1)
		if err != nil {
			errorCount++
			a.logger.Error("Perception failed", zap.Int("iteration", iteration), zap.Error(err))
			if errorCount >= a.cfg.MaxErrors {
				result.Errors = errorCount
				return a.finish(result, StateDone, false, fmt.Sprintf("too many consecutive errors (%d)", errorCount))
			}
			a.pause(ctx)
			continue
		}
		a.history.RecordPerception(iteration, snapshot)

		result.State = StateReason
		plan, err := a.planner.PlanNext(ctx, goal, snapshot, longRange)
		if err != nil {
			errorCount++
			a.logger.Error("Planning failed", zap.Int("iteration", iteration), zap.Error(err))
			if errorCount >= a.cfg.MaxErrors {
				result.Errors = errorCount
				return a.finish(result, StateDone, false, fmt.Sprintf("too many consecutive errors (%d)", errorCount))
			}
			a.pause(ctx)
			continue
		}
		a.history.RecordPlan(iteration, *plan)
		result.Confidence = plan.Confidence

		result.State = StateAct
		stepFailed := a.act(ctx, iteration, plan, snapshot, &result)
		if stepFailed {
			errorCount++
			if errorCount >= a.cfg.MaxErrors {
				result.Errors = errorCount
				return a.finish(result, StateDone, false, fmt.Sprintf("too many consecutive errors (%d)", errorCount))
			}
		} else {
			errorCount = 0
		}

		result.State = StateObserve
		observed := a.observe(ctx, goal, app, snapshot)

		// The goal check runs before any confidence judgement: a plan too
		// uncertain to continue on may still have been the finishing move.
		result.State = StateCheckGoal
		if a.goalAchieved(goal, observed, plan, longRange) {
			result.Errors = errorCount
			result.Progress = 1.0
			return a.finish(result, StateDone, true, fmt.Sprintf("goal achieved after %d iteration(s)", iteration))
		}

		if plan.Confidence < a.cfg.MinConfidenceAbort {
			result.Errors = errorCount
			return a.finish(result, StateAborted, false,
				fmt.Sprintf("very low confidence (%.2f), aborting to avoid destructive guessing", plan.Confidence))
		}
		if plan.Confidence < a.cfg.MinConfidenceWarn {
			a.logger.Warn("Proceeding on low confidence",
				zap.Int("iteration", iteration), zap.Float64("confidence", plan.Confidence))
		}

		a.pause(ctx)
	}

	result.Errors = errorCount
	return a.finish(result, StateDone, false, fmt.Sprintf("max iterations reached (%d)", a.cfg.MaxIterations))
}

func (a *Agent) finish(result RunResult, state State, success bool, message string) RunResult {
	result.State = state
	result.Success = success
	result.Message = message
	result.History = a.history.Entries()
	if success {
		a.logger.Info("Run finished", zap.String("message", message))
	} else {
		a.logger.Warn("Run ended without success", zap.String("state", string(state)), zap.String("message", message))
	}
	return result
}

// resolveTargetApp picks the application to drive: the explicit hint if
// given, otherwise the oracle chooses among running applications.
func (a *Agent) resolveTargetApp(ctx context.Context, goal, appHint string) (string, error) {
	if appHint != "" {
		return perception.NormalizeAppName(appHint), nil
	}

	running, err := a.perceiver.RunningApps(ctx)
	if err != nil {
		return "", fmt.Errorf("listing running applications: %w", err)
	}
	if len(running) == 0 {
		return "", errors.New("no automatable applications are running")
	}
	if len(running) == 1 {
		return running[0], nil
	}
	return a.planner.ChooseApp(ctx, goal, running)
}

// planLongRange asks for the strategic plan once, up front. Failures are
// tolerated; the loop still works from per-iteration plans alone.
func (a *Agent) planLongRange(ctx context.Context, goal, app string) *planner.LongRangePlan {
	snapshot, err := a.perceive(ctx, goal, app, false)
	if err != nil {
		a.logger.Warn("Skipping strategic plan, initial perception failed", zap.Error(err))
		return nil
	}
	longRange, err := a.planner.PlanLongRange(ctx, goal, app, snapshot)
	if err != nil {
		a.logger.Warn("Skipping strategic plan", zap.Error(err))
		return nil
	}
	a.logger.Info("Strategic plan ready",
		zap.String("end_state", longRange.EndState), zap.Int("steps", len(longRange.Steps)))
	return longRange
}

// perceive builds one immutable snapshot. Visual analysis and correlation
// are best-effort enrichments over the authoritative accessibility data.
func (a *Agent) perceive(ctx context.Context, goal, app string, allowLaunchRetry bool) (*planner.Snapshot, error) {
	elements, err := a.perceiver.Discover(ctx, app)
	if err != nil {
		return nil, err
	}

	// An empty tree with a known target usually means the app is not
	// running or still starting: attempt one launch, give it its
	// class-appropriate wait, and rescan once.
	if len(elements) == 0 && allowLaunchRetry {
		outcome := a.executor.Perform(ctx, planner.ActionStep{Op: planner.OpLaunchApp, AppName: app}, nil)
		if !outcome.Success {
			a.logger.Warn("Launch attempt failed",
				zap.String("app", app), zap.String("error_code", outcome.ErrorCode), zap.String("error", outcome.Err))
		}

		wait := a.waits.WaitFor(app)
		a.logger.Info("Waiting for application to present UI",
			zap.String("app", app), zap.Duration("wait", wait))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		if elements, err = a.perceiver.Discover(ctx, app); err != nil {
			return nil, err
		}
	}

	snapshot := &planner.Snapshot{
		UIElements: elements,
		Timestamp:  time.Now().UTC(),
		History:    a.history.Summary(historyWindow),
	}

	if appCtx, err := a.perceiver.Context(ctx, app); err != nil {
		a.logger.Debug("Application context unavailable", zap.Error(err))
		snapshot.Context = perception.AppContext{AppName: app}
	} else {
		snapshot.Context = appCtx
	}

	if a.sampler != nil {
		snapshot.SystemState = a.sampler.Sample(ctx)
	}

	if a.capturer != nil && a.analyzer != nil {
		image, err := a.capturer.Capture(ctx, app)
		if err != nil {
			a.logger.Warn("Screen capture failed, continuing without vision", zap.Error(err))
		} else if analysis, err := a.analyzer.Analyze(ctx, image, goal); err != nil {
			a.logger.Warn("Visual analysis failed, continuing without vision", zap.Error(err))
		} else {
			snapshot.VisualAnalysis = analysis
			if a.correlator != nil {
				result := a.correlator.Correlate(elements, analysis)
				snapshot.Correlations = &result
			}
		}
	}

	return snapshot, nil
}

// act executes at most ONE step of the plan. After a successful non-final
// step the iteration ends with a partial outcome, so the next perception
// round sees the changed screen before any remaining step is reconsidered;
// a fresh plan is requested next iteration instead of draining this one.
// Returns true when the attempted step failed.
func (a *Agent) act(ctx context.Context, iteration int, plan *planner.Plan, snapshot *planner.Snapshot, result *RunResult) bool {
	if len(plan.Steps) == 0 {
		a.logger.Info("Planner proposed no steps", zap.Int("iteration", iteration))
		return false
	}

	step := plan.Steps[0]
	outcome := a.executor.Perform(ctx, step, snapshot)
	a.history.RecordOutcome(iteration, outcome)
	result.LastAction = string(step.Op)

	if !outcome.Success {
		a.logger.Warn("Step failed, ending iteration",
			zap.Int("iteration", iteration),
			zap.String("op", string(step.Op)),
			zap.String("error_code", outcome.ErrorCode))
		return true
	}

	result.Progress = 1.0 / float64(len(plan.Steps))
	if pending := len(plan.Steps) - 1; pending > 0 {
		a.logger.Info("Partial plan executed, returning for observation",
			zap.Int("iteration", iteration),
			zap.Int("completed", 1),
			zap.Int("pending", pending))
	}
	return false
}

// observe re-perceives after acting so the goal check sees the new screen.
// Falls back to the pre-action snapshot when re-perception fails.
func (a *Agent) observe(ctx context.Context, goal, app string, previous *planner.Snapshot) *planner.Snapshot {
	snapshot, err := a.perceive(ctx, goal, app, false)
	if err != nil {
		a.logger.Warn("Post-action perception failed, checking goal against stale snapshot", zap.Error(err))
		return previous
	}
	return snapshot
}

// pause sleeps between iterations, respecting cancellation.
func (a *Agent) pause(ctx context.Context) {
	if a.cfg.IterationPause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(a.cfg.IterationPause):
	}
}
