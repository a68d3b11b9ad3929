// File: internal/agent/agent_test.go
package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/config"
	"github.com/axdriver/axdriver-cli/internal/executor"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
)

// MockPerceiver mocks the Perceiver interface.
type MockPerceiver struct {
	mock.Mock
}

func (m *MockPerceiver) Discover(ctx context.Context, targetApp string) ([]perception.UIElement, error) {
	args := m.Called(ctx, targetApp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]perception.UIElement), args.Error(1)
}

func (m *MockPerceiver) Context(ctx context.Context, targetApp string) (perception.AppContext, error) {
	args := m.Called(ctx, targetApp)
	return args.Get(0).(perception.AppContext), args.Error(1)
}

func (m *MockPerceiver) RunningApps(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockPlanner mocks the planner.Planner interface.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) PlanNext(ctx context.Context, goal string, snapshot *planner.Snapshot, longRange *planner.LongRangePlan) (*planner.Plan, error) {
	args := m.Called(ctx, goal, snapshot, longRange)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planner.Plan), args.Error(1)
}

func (m *MockPlanner) PlanLongRange(ctx context.Context, goal, targetApp string, snapshot *planner.Snapshot) (*planner.LongRangePlan, error) {
	args := m.Called(ctx, goal, targetApp, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planner.LongRangePlan), args.Error(1)
}

func (m *MockPlanner) ChooseApp(ctx context.Context, goal string, candidates []string) (string, error) {
	args := m.Called(ctx, goal, candidates)
	return args.String(0), args.Error(1)
}

// MockExecutor mocks the executor.Executor interface.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Perform(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) executor.Outcome {
	args := m.Called(ctx, step, snapshot)
	return args.Get(0).(executor.Outcome)
}

type stubSampler struct{}

func (stubSampler) Sample(_ context.Context) perception.SystemState {
	return perception.SystemState{BatteryLevel: 100, PowerSource: "AC", NetworkStatus: "wifi", Time: "10:00"}
}

type agentFixture struct {
	agent     *Agent
	perceiver *MockPerceiver
	planner   *MockPlanner
	executor  *MockExecutor
}

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxIterations:      10,
		MaxErrors:          3,
		MinConfidenceAbort: 0.1,
		MinConfidenceWarn:  0.3,
		GoalConfidence:     0.9,
	}
}

func setupAgentTest(t *testing.T, cfg config.AgentConfig) agentFixture {
	t.Helper()
	perceiver := new(MockPerceiver)
	plannerMock := new(MockPlanner)
	executorMock := new(MockExecutor)

	a, err := New(Options{
		Config:    cfg,
		Waits:     perception.LaunchWaits{Browser: time.Millisecond, Heavy: time.Millisecond, Light: time.Millisecond, Default: time.Millisecond},
		Perceiver: perceiver,
		Sampler:   stubSampler{},
		Planner:   plannerMock,
		Executor:  executorMock,
		Logger:    zap.NewNop(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		perceiver.AssertExpectations(t)
		plannerMock.AssertExpectations(t)
		executorMock.AssertExpectations(t)
	})
	return agentFixture{agent: a, perceiver: perceiver, planner: plannerMock, executor: executorMock}
}

func settingsSnapshot(netValue string) []perception.UIElement {
	return []perception.UIElement{
		{
			ID:               "popup-net",
			Role:             "AXPopUpButton",
			Title:            perception.Label{Text: "Network Mode"},
			CurrentValue:     netValue,
			AvailableOptions: []string{"Off", "Wi-Fi", "Ethernet"},
			Enabled:          true,
		},
		{
			ID:      "btn-apply",
			Role:    "AXButton",
			Title:   perception.Label{Text: "Apply"},
			Enabled: true,
		},
	}
}

func stubContext(f agentFixture, app string) {
	f.perceiver.On("Context", mock.Anything, app).
		Return(perception.AppContext{AppName: app, WindowTitle: "Network"}, nil).Maybe()
}

func TestRun_AchievesDirectionalGoal(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	goal := "Change the network mode from Off to Wi-Fi"
	app := "System Settings"
	stubContext(f, app)

	// Strategic planning round plus iteration one perceives "Off", the
	// post-action observation sees "Wi-Fi".
	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil).Twice()
	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Wi-Fi"), nil).Once()

	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(&planner.LongRangePlan{Goal: goal, EndState: "network mode shows Wi-Fi", Steps: []string{"open network pane", "switch mode"}}, nil).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{
			Steps:      []planner.ActionStep{{Op: planner.OpSelect, Target: "popup-net", Option: "Wi-Fi"}},
			Confidence: 0.85,
		}, nil).Once()

	f.executor.On("Perform", mock.Anything, mock.MatchedBy(func(step planner.ActionStep) bool {
		return step.Op == planner.OpSelect && step.Target == "popup-net" && step.Option == "Wi-Fi"
	}), mock.Anything).Return(executor.Outcome{Success: true, Result: "selected \"Wi-Fi\" in popup-net"}).Once()

	result := f.agent.Run(context.Background(), goal, app)

	assert.True(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.Iterations)
	assert.Contains(t, result.Message, "goal achieved")
	assert.Equal(t, 1.0, result.Progress)
	assert.Equal(t, 0.85, result.Confidence)
	assert.Equal(t, string(planner.OpSelect), result.LastAction)
	require.NotEmpty(t, result.History)
	require.NotNil(t, result.History[0].Plan)
}

// A multi-step plan is never drained within one iteration: only the first
// step runs, then the loop returns to perception so the next step is
// reconsidered against a fresh screen.
func TestRun_ExecutesOneStepPerIteration(t *testing.T) {
	cfg := testAgentConfig()
	cfg.MaxIterations = 1
	f := setupAgentTest(t, cfg)
	app := "System Settings"
	goal := "reconfigure the network"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil)
	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{
			Steps: []planner.ActionStep{
				{Op: planner.OpClick, Target: "btn-apply"},
				{Op: planner.OpSelect, Target: "popup-net", Option: "Wi-Fi"},
				{Op: planner.OpClick, Target: "btn-apply"},
			},
			Confidence: 0.8,
		}, nil).Once()

	// Exactly one Perform despite three planned steps.
	f.executor.On("Perform", mock.Anything, mock.MatchedBy(func(step planner.ActionStep) bool {
		return step.Op == planner.OpClick && step.Target == "btn-apply"
	}), mock.Anything).Return(executor.Outcome{Success: true, Result: "clicked btn-apply"}).Once()

	result := f.agent.Run(context.Background(), goal, app)

	assert.False(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Contains(t, result.Message, "max iterations reached")
	assert.InDelta(t, 1.0/3.0, result.Progress, 1e-9)
	assert.Equal(t, string(planner.OpClick), result.LastAction)
	f.executor.AssertNumberOfCalls(t, "Perform", 1)
}

func TestRun_AbortsOnVeryLowConfidence(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "Notes"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil)
	f.planner.On("PlanLongRange", mock.Anything, mock.Anything, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&planner.Plan{Confidence: 0.05}, nil).Once()

	result := f.agent.Run(context.Background(), "do something vague", app)

	assert.False(t, result.Success)
	assert.Equal(t, StateAborted, result.State)
	assert.Contains(t, result.Message, "very low confidence")
	f.executor.AssertNotCalled(t, "Perform", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_EnforcesErrorBudget(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "Finder"

	f.perceiver.On("Discover", mock.Anything, app).
		Return(nil, perception.ErrDiscovery)

	result := f.agent.Run(context.Background(), "open the downloads folder", app)

	// Budget exhaustion is an unsuccessful completion, not an abort; the
	// aborted state is reserved for low confidence and cancellation.
	assert.False(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 3, result.Errors)
	assert.Equal(t, 3, result.Iterations)
	assert.Contains(t, result.Message, "too many consecutive errors")
}

func TestRun_EnforcesErrorBudgetOnActionFailures(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "Safari"
	goal := "click the missing button"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil)
	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{
			Steps:      []planner.ActionStep{{Op: planner.OpClick, Target: "btn-gone"}},
			Confidence: 0.8,
		}, nil)

	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Return(executor.Outcome{ErrorCode: executor.ErrCodeElementNotFound, Err: "element not found"}).Times(3)

	result := f.agent.Run(context.Background(), goal, app)

	assert.False(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 3, result.Iterations)
	assert.Zero(t, result.Progress)
	assert.Contains(t, result.Message, "too many consecutive errors")
}

func TestRun_SuccessResetsErrorBudget(t *testing.T) {
	cfg := testAgentConfig()
	cfg.MaxIterations = 6
	f := setupAgentTest(t, cfg)
	app := "Safari"
	goal := "click things"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil)
	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()

	plan := &planner.Plan{
		Steps:      []planner.ActionStep{{Op: planner.OpClick, Target: "btn-apply"}},
		Confidence: 0.8,
	}
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).Return(plan, nil)

	// Two failures, one success, then two more failures: the reset keeps
	// the consecutive count below the budget of three.
	failed := executor.Outcome{ErrorCode: executor.ErrCodeElementNotFound, Err: "element not found"}
	ok := executor.Outcome{Success: true, Result: "clicked btn-apply"}
	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(failed).Twice()
	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(ok).Once()
	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(failed).Twice()
	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).Return(ok)

	result := f.agent.Run(context.Background(), goal, app)

	assert.False(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Contains(t, result.Message, "max iterations reached")
	assert.Equal(t, 6, result.Iterations)
}

func TestRun_StoppedByUser(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "Mail"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.perceiver.On("Discover", mock.Anything, app).Return(nil, ctx.Err()).Maybe()

	result := f.agent.Run(ctx, "archive everything", app)

	assert.False(t, result.Success)
	assert.Equal(t, StateAborted, result.State)
	assert.Equal(t, "stopped by user", result.Message)
	assert.Zero(t, result.Iterations)
}

func TestRun_LaunchesAppOnEmptyTree(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "Notes"
	goal := "type a note"
	stubContext(f, app)

	// Strategic round sees the empty tree too, but only iteration one is
	// allowed the launch, the wait, and the rescan.
	f.perceiver.On("Discover", mock.Anything, app).Return([]perception.UIElement{}, nil).Twice()
	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil)

	f.executor.On("Perform", mock.Anything, mock.MatchedBy(func(step planner.ActionStep) bool {
		return step.Op == planner.OpLaunchApp && step.AppName == app
	}), mock.Anything).Return(executor.Outcome{Success: true, Result: "launched Notes"}).Once()

	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{Confidence: 0.95}, nil).Once()

	result := f.agent.Run(context.Background(), goal, app)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Iterations)
}

// A barely-confident plan whose single observation already satisfies the
// goal still finishes successfully: the goal check runs before the
// confidence gate.
func TestRun_GoalCheckRunsBeforeConfidenceGate(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "System Settings"
	goal := "change the network mode from Off to Wi-Fi"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Wi-Fi"), nil)
	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{Confidence: 0.05}, nil).Once()

	result := f.agent.Run(context.Background(), goal, app)

	assert.True(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Contains(t, result.Message, "goal achieved")
}

// An indicator from the strategic plan ends the run even when the oracle's
// per-iteration confidence would not clear the generic threshold.
func TestRun_CompletionIndicatorEndsRun(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	app := "System Settings"
	goal := "enable network mode"
	stubContext(f, app)

	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("Off"), nil).Twice()
	f.perceiver.On("Discover", mock.Anything, app).Return(settingsSnapshot("On"), nil)

	f.planner.On("PlanLongRange", mock.Anything, goal, app, mock.Anything).
		Return(&planner.LongRangePlan{
			Goal:                 goal,
			EndState:             "network mode enabled",
			CompletionIndicators: []string{"Network Mode is On"},
		}, nil).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{
			Steps:      []planner.ActionStep{{Op: planner.OpSelect, Target: "popup-net", Option: "On"}},
			Confidence: 0.5,
		}, nil).Once()

	f.executor.On("Perform", mock.Anything, mock.Anything, mock.Anything).
		Return(executor.Outcome{Success: true, Result: "selected \"On\" in popup-net"}).Once()

	result := f.agent.Run(context.Background(), goal, app)

	assert.True(t, result.Success)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 1, result.Iterations)
}

func TestRun_ResolvesAppViaOracle(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	goal := "write an email"

	f.perceiver.On("RunningApps", mock.Anything).Return([]string{"Mail", "Safari"}, nil).Once()
	f.planner.On("ChooseApp", mock.Anything, goal, []string{"Mail", "Safari"}).Return("Mail", nil).Once()

	f.perceiver.On("Discover", mock.Anything, "Mail").Return(settingsSnapshot("Off"), nil)
	stubContext(f, "Mail")
	f.planner.On("PlanLongRange", mock.Anything, goal, "Mail", mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{Confidence: 0.95}, nil).Once()

	result := f.agent.Run(context.Background(), goal, "")

	assert.True(t, result.Success)
	assert.Equal(t, "Mail", result.App)
}

func TestRun_SingleRunningAppSkipsOracle(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())
	goal := "do the thing"

	f.perceiver.On("RunningApps", mock.Anything).Return([]string{"Notes"}, nil).Once()
	f.perceiver.On("Discover", mock.Anything, "Notes").Return(settingsSnapshot("Off"), nil)
	stubContext(f, "Notes")
	f.planner.On("PlanLongRange", mock.Anything, goal, "Notes", mock.Anything).
		Return(nil, errors.New("oracle unavailable")).Once()
	f.planner.On("PlanNext", mock.Anything, goal, mock.Anything, mock.Anything).
		Return(&planner.Plan{Confidence: 0.95}, nil).Once()

	result := f.agent.Run(context.Background(), goal, "")

	assert.Equal(t, "Notes", result.App)
	f.planner.AssertNotCalled(t, "ChooseApp", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_NoRunningApps(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())

	f.perceiver.On("RunningApps", mock.Anything).Return([]string{}, nil).Once()

	result := f.agent.Run(context.Background(), "anything", "")

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "could not resolve a target application")
}

func TestGoalAchieved_Table(t *testing.T) {
	f := setupAgentTest(t, testAgentConfig())

	snapshotWith := func(elements ...perception.UIElement) *planner.Snapshot {
		return &planner.Snapshot{UIElements: elements}
	}

	tests := []struct {
		name      string
		goal      string
		snapshot  *planner.Snapshot
		plan      *planner.Plan
		longRange *planner.LongRangePlan
		want      bool
	}{
		{
			name: "directional goal matches end value",
			goal: "change the mode from Off to Wi-Fi",
			snapshot: snapshotWith(perception.UIElement{
				ID: "popup-net", CurrentValue: "Wi-Fi",
			}),
			plan: &planner.Plan{Confidence: 0.5},
			want: true,
		},
		{
			name: "directional goal ignores start value",
			goal: "change the mode from Off to Wi-Fi",
			snapshot: snapshotWith(perception.UIElement{
				ID: "popup-net", CurrentValue: "Off",
			}),
			plan: &planner.Plan{Confidence: 0.99},
			want: false,
		},
		{
			name: "quoted search text present with decent confidence",
			goal: `search for "golang testing"`,
			snapshot: snapshotWith(perception.UIElement{
				ID: "field-search", CurrentValue: "golang testing",
			}),
			plan: &planner.Plan{Confidence: 0.75},
			want: true,
		},
		{
			name: "quoted search text present but confidence too low",
			goal: `search for "golang testing"`,
			snapshot: snapshotWith(perception.UIElement{
				ID: "field-search", CurrentValue: "golang testing",
			}),
			plan: &planner.Plan{Confidence: 0.1},
			want: false,
		},
		{
			name: "play goal satisfied by visible pause control",
			goal: "play the video",
			snapshot: snapshotWith(perception.UIElement{
				ID: "btn-pause", Title: perception.Label{Text: "Pause"},
			}),
			plan: &planner.Plan{Confidence: 0.5},
			want: true,
		},
		{
			name: "play goal not satisfied by heuristic label",
			goal: "play the video",
			snapshot: snapshotWith(perception.UIElement{
				ID: "AXButton_10_20", Title: perception.Label{Text: "pause at (10, 20)", Heuristic: true},
			}),
			plan: &planner.Plan{Confidence: 0.5},
			want: false,
		},
		{
			name:     "generic goal with empty confident plan",
			goal:     "tidy the desktop",
			snapshot: snapshotWith(),
			plan:     &planner.Plan{Confidence: 0.95},
			want:     true,
		},
		{
			name:     "generic goal with pending steps",
			goal:     "tidy the desktop",
			snapshot: snapshotWith(),
			plan: &planner.Plan{
				Steps:      []planner.ActionStep{{Op: planner.OpClick, Target: "x"}},
				Confidence: 0.95,
			},
			want: false,
		},
		{
			name: "set-to goal matches value",
			goal: "set the output device to Headphones",
			snapshot: snapshotWith(perception.UIElement{
				ID: "popup-out", CurrentValue: "Headphones",
			}),
			plan: &planner.Plan{Confidence: 0.2},
			want: true,
		},
		{
			name:     "terminal goal defers to oracle confidence",
			goal:     "run the echo command in the terminal",
			snapshot: snapshotWith(),
			plan:     &planner.Plan{Confidence: 0.85},
			want:     true,
		},
		{
			name:     "terminal goal below family threshold",
			goal:     "run the echo command in the terminal",
			snapshot: snapshotWith(),
			plan:     &planner.Plan{Confidence: 0.6},
			want:     false,
		},
		{
			name: "indicator names element with exact end value",
			goal: "enable network mode",
			snapshot: snapshotWith(perception.UIElement{
				ID: "popup-net", Title: perception.Label{Text: "Network Mode"}, CurrentValue: "On",
			}),
			plan: &planner.Plan{Confidence: 0.4},
			longRange: &planner.LongRangePlan{
				CompletionIndicators: []string{"Network Mode is On"},
			},
			want: true,
		},
		{
			name: "indicator not satisfied falls through and generic fails",
			goal: "enable network mode",
			snapshot: snapshotWith(perception.UIElement{
				ID: "popup-net", Title: perception.Label{Text: "Network Mode"}, CurrentValue: "Off",
			}),
			plan: &planner.Plan{Confidence: 0.4},
			longRange: &planner.LongRangePlan{
				CompletionIndicators: []string{"Network Mode is On"},
			},
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := f.agent.goalAchieved(tc.goal, tc.snapshot, tc.plan, tc.longRange)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIndicatorSatisfied_Directional(t *testing.T) {
	snapshotWithNetwork := func(status string) *planner.Snapshot {
		return &planner.Snapshot{
			SystemState: perception.SystemState{NetworkStatus: status},
		}
	}
	indicator := "network_status changes from disconnected to connected"

	// Only the destination value satisfies the indicator, and the match is
	// exact: "disconnected" must not count as containing "connected".
	assert.True(t, indicatorSatisfied(snapshotWithNetwork("connected"), indicator))
	assert.False(t, indicatorSatisfied(snapshotWithNetwork("disconnected"), indicator))
	assert.False(t, indicatorSatisfied(snapshotWithNetwork(""), indicator))
}

func TestIndicatorSatisfied_SystemAttributes(t *testing.T) {
	snapshot := &planner.Snapshot{
		SystemState: perception.SystemState{
			BatteryLevel: 80,
			PowerSource:  "AC Power",
		},
	}

	assert.True(t, indicatorSatisfied(snapshot, "power source changes from Battery to AC Power"))
	assert.True(t, indicatorSatisfied(snapshot, "battery is 80%"))
	assert.False(t, indicatorSatisfied(snapshot, "battery is 100%"))
	assert.False(t, indicatorSatisfied(snapshot, ""))
}

func TestIndicatorSatisfied_LiteralText(t *testing.T) {
	snapshot := &planner.Snapshot{
		UIElements: []perception.UIElement{
			{ID: "lbl-status", Title: perception.Label{Text: "Download complete"}},
		},
	}

	assert.True(t, indicatorSatisfied(snapshot, "download complete"))
	assert.False(t, indicatorSatisfied(snapshot, "upload complete"))
}
