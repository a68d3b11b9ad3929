// File: internal/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
)

// Standardized error codes reported back to the control loop. Anticipated
// failure modes always come back as a failed Outcome carrying one of these,
// never as a panic.
const (
	ErrCodeElementNotFound      = "ELEMENT_NOT_FOUND"
	ErrCodeElementDisabled      = "ELEMENT_DISABLED"
	ErrCodeInvalidOption        = "INVALID_OPTION"
	ErrCodeInvalidDirection     = "INVALID_DIRECTION"
	ErrCodeInvalidParameters    = "INVALID_PARAMETERS"
	ErrCodeUnsupportedOperation = "UNSUPPORTED_OPERATION"
	ErrCodeAppLaunchFailed      = "APP_LAUNCH_FAILED"
	ErrCodeTimeoutError         = "TIMEOUT_ERROR"
	ErrCodeExecutionFailure     = "EXECUTION_FAILURE"
)

// Outcome is the result of dispatching exactly one ActionStep.
type Outcome struct {
	Success   bool      `json:"success"`
	Result    string    `json:"result,omitempty"`
	Err       string    `json:"error,omitempty"`
	ErrorCode string    `json:"error_code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ElementHandle is an opaque reference to a live accessibility element held
// by the platform driver.
type ElementHandle any

// InputDriver is the OS input-injection boundary. Implementations wrap the
// platform APIs; tests inject fakes.
type InputDriver interface {
	FindByIdentifier(ctx context.Context, appName, id string) (ElementHandle, bool, error)
	FindByTitle(ctx context.Context, appName, title string) (ElementHandle, bool, error)
	// FindNear locates an element of the given role within tolerance pixels
	// of the position.
	FindNear(ctx context.Context, appName, role string, x, y, tolerance float64) (ElementHandle, bool, error)

	Press(ctx context.Context, handle ElementHandle) error
	SetValue(ctx context.Context, handle ElementHandle, text string) error
	SelectOption(ctx context.Context, handle ElementHandle, option string) error
	Scroll(ctx context.Context, handle ElementHandle, direction string) error

	PressKey(ctx context.Context, keyCode int) error
	TypeSystemWide(ctx context.Context, text string) error

	LaunchApp(ctx context.Context, appName string) error
	FocusApp(ctx context.Context, appName string) error
}

// Executor dispatches one step at a time. Implementations never return Go
// errors for anticipated failures; those live in the Outcome.
type Executor interface {
	Perform(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) Outcome
}

// positionTolerance is the pixel slack when resolving positional fallback IDs.
const positionTolerance = 10.0

// maxWaitDuration caps oracle-requested waits.
const maxWaitDuration = 30 * time.Second

type stepHandler func(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) (string, error)

// DriverExecutor routes steps to an InputDriver with an explicit handler per
// operation.
type DriverExecutor struct {
	driver      InputDriver
	logger      *zap.Logger
	settleDelay time.Duration
	handlers    map[planner.Op]stepHandler
}

var _ Executor = (*DriverExecutor)(nil)

// NewDriverExecutor wires the executor over the given driver.
func NewDriverExecutor(driver InputDriver, settleDelay time.Duration, logger *zap.Logger) *DriverExecutor {
	e := &DriverExecutor{
		driver:      driver,
		logger:      logger.Named("executor"),
		settleDelay: settleDelay,
	}
	e.handlers = map[planner.Op]stepHandler{
		planner.OpClick:     e.handleClick,
		planner.OpType:      e.handleType,
		planner.OpKeystroke: e.handleKeystroke,
		planner.OpKey:       e.handleKey,
		planner.OpSelect:    e.handleSelect,
		planner.OpScroll:    e.handleScroll,
		planner.OpWait:      e.handleWait,
		planner.OpLaunchApp: e.handleLaunchApp,
	}
	return e
}

// Perform dispatches one step and reports its outcome. Successful
// UI-mutating steps are followed by a bounded settle delay so the next
// perception round sees the result.
func (e *DriverExecutor) Perform(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) Outcome {
	handler, ok := e.handlers[step.Op]
	if !ok {
		// Unknown ops are rejected at plan parse time; reaching this arm
		// means a hand-constructed step, and it still must not panic.
		return failure(fmt.Sprintf("operation %q is not supported", step.Op), ErrCodeUnsupportedOperation)
	}

	result, err := handler(ctx, step, snapshot)
	if err != nil {
		code := classifyError(err)
		e.logger.Warn("Step failed",
			zap.String("op", string(step.Op)),
			zap.String("target", step.Target),
			zap.String("error_code", code),
			zap.Error(err))
		return failure(err.Error(), code)
	}

	if step.Op != planner.OpWait {
		e.settle(ctx)
	}

	e.logger.Debug("Step complete", zap.String("op", string(step.Op)), zap.String("result", result))
	return Outcome{Success: true, Result: result, Timestamp: time.Now().UTC()}
}

// FocusApp brings the named application to the foreground.
func (e *DriverExecutor) FocusApp(ctx context.Context, appName string) error {
	return e.driver.FocusApp(ctx, perception.NormalizeAppName(appName))
}

func failure(msg, code string) Outcome {
	return Outcome{Err: msg, ErrorCode: code, Timestamp: time.Now().UTC()}
}

// settle gives the UI a moment to react, respecting cancellation.
func (e *DriverExecutor) settle(ctx context.Context) {
	if e.settleDelay <= 0 {
		return
	}
	timer := time.NewTimer(e.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// -- Step handlers --

func (e *DriverExecutor) handleClick(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) (string, error) {
	handle, el, err := e.findElement(ctx, step.Target, snapshot)
	if err != nil {
		return "", err
	}
	if el != nil && !el.Enabled {
		return "", &codedError{code: ErrCodeElementDisabled, msg: fmt.Sprintf("element %s is disabled", step.Target)}
	}
	if err := e.driver.Press(ctx, handle); err != nil {
		return "", err
	}
	return fmt.Sprintf("clicked %s", step.Target), nil
}

func (e *DriverExecutor) handleType(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) (string, error) {
	if step.Text == "" {
		return "", &codedError{code: ErrCodeInvalidParameters, msg: "type step requires text"}
	}
	if step.Target == planner.TargetAll {
		if err := e.driver.TypeSystemWide(ctx, step.Text); err != nil {
			return "", err
		}
		return "typed system-wide", nil
	}

	handle, _, err := e.findElement(ctx, step.Target, snapshot)
	if err != nil {
		return "", err
	}
	if err := e.driver.SetValue(ctx, handle, step.Text); err != nil {
		return "", err
	}
	return fmt.Sprintf("typed into %s", step.Target), nil
}

// handleKeystroke types system-wide regardless of target. Text prefixed with
// "open " or "launch " is rerouted to an app launch, matching how planners
// phrase that intent.
func (e *DriverExecutor) handleKeystroke(ctx context.Context, step planner.ActionStep, _ *planner.Snapshot) (string, error) {
	if step.Text == "" {
		return "", &codedError{code: ErrCodeInvalidParameters, msg: "keystroke step requires text"}
	}

	lowered := strings.ToLower(step.Text)
	for _, prefix := range []string{"open ", "launch "} {
		if strings.HasPrefix(lowered, prefix) {
			appName := perception.NormalizeAppName(step.Text[len(prefix):])
			if err := e.driver.LaunchApp(ctx, appName); err != nil {
				return "", &codedError{code: ErrCodeAppLaunchFailed, msg: err.Error()}
			}
			return fmt.Sprintf("launched %s", appName), nil
		}
	}

	if err := e.driver.TypeSystemWide(ctx, step.Text); err != nil {
		return "", err
	}
	return "keystroke sent", nil
}

func (e *DriverExecutor) handleKey(ctx context.Context, step planner.ActionStep, _ *planner.Snapshot) (string, error) {
	code, ok := KeyCode(step.Key)
	if !ok {
		return "", &codedError{code: ErrCodeInvalidParameters, msg: fmt.Sprintf("unknown key %q", step.Key)}
	}
	if err := e.driver.PressKey(ctx, code); err != nil {
		return "", err
	}
	return fmt.Sprintf("pressed %s", step.Key), nil
}

func (e *DriverExecutor) handleSelect(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) (string, error) {
	if step.Option == "" {
		return "", &codedError{code: ErrCodeInvalidParameters, msg: "select step requires an option"}
	}

	handle, el, err := e.findElement(ctx, step.Target, snapshot)
	if err != nil {
		return "", err
	}

	// When the tree reports the option set, reject unknown options before
	// touching the UI.
	if el != nil && len(el.AvailableOptions) > 0 {
		valid := false
		for _, opt := range el.AvailableOptions {
			if strings.EqualFold(opt, step.Option) {
				valid = true
				break
			}
		}
		if !valid {
			return "", &codedError{
				code: ErrCodeInvalidOption,
				msg:  fmt.Sprintf("option %q is not offered by %s (available: %s)", step.Option, step.Target, strings.Join(el.AvailableOptions, ", ")),
			}
		}
	}

	if err := e.driver.SelectOption(ctx, handle, step.Option); err != nil {
		return "", err
	}
	return fmt.Sprintf("selected %q in %s", step.Option, step.Target), nil
}

var validScrollDirections = map[string]struct{}{
	"up": {}, "down": {}, "left": {}, "right": {},
}

func (e *DriverExecutor) handleScroll(ctx context.Context, step planner.ActionStep, snapshot *planner.Snapshot) (string, error) {
	direction := strings.ToLower(strings.TrimSpace(step.Direction))
	if _, ok := validScrollDirections[direction]; !ok {
		return "", &codedError{code: ErrCodeInvalidDirection, msg: fmt.Sprintf("invalid scroll direction %q", step.Direction)}
	}

	handle, _, err := e.findElement(ctx, step.Target, snapshot)
	if err != nil {
		return "", err
	}
	if err := e.driver.Scroll(ctx, handle, direction); err != nil {
		return "", err
	}
	return fmt.Sprintf("scrolled %s", direction), nil
}

func (e *DriverExecutor) handleWait(ctx context.Context, step planner.ActionStep, _ *planner.Snapshot) (string, error) {
	duration := time.Duration(step.DurationSeconds * float64(time.Second))
	if duration <= 0 {
		duration = time.Second
	}
	if duration > maxWaitDuration {
		duration = maxWaitDuration
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}
	return fmt.Sprintf("waited %s", duration), nil
}

func (e *DriverExecutor) handleLaunchApp(ctx context.Context, step planner.ActionStep, _ *planner.Snapshot) (string, error) {
	if step.AppName == "" {
		return "", &codedError{code: ErrCodeInvalidParameters, msg: "launch_app step requires an app name"}
	}
	appName := perception.NormalizeAppName(step.AppName)
	if err := e.driver.LaunchApp(ctx, appName); err != nil {
		return "", &codedError{code: ErrCodeAppLaunchFailed, msg: err.Error()}
	}
	return fmt.Sprintf("launched %s", appName), nil
}
