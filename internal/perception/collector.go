// File: internal/perception/collector.go
package perception

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// ErrDiscovery marks a total enumeration failure: the accessibility layer
// could not be consulted at all. Callers must treat this differently from an
// empty (but successful) scan.
var ErrDiscovery = errors.New("accessibility discovery failed")

// AccessibilityProvider is the platform boundary for reading the
// accessibility tree. Implementations wrap the OS APIs; tests inject fakes.
type AccessibilityProvider interface {
	// Windows enumerates the top-level windows of the named application.
	Windows(ctx context.Context, appName string) ([]Window, error)
	// ElementsByRole scans one window for all elements of the given role.
	ElementsByRole(ctx context.Context, window Window, role string) ([]RawElement, error)
	// RunningApps lists the names of applications with a UI presence.
	RunningApps(ctx context.Context) ([]string, error)
}

// interactiveRoles is the fixed set of accessibility roles worth surfacing
// to the planner. Purely structural roles are excluded on purpose.
var interactiveRoles = []string{
	"AXButton",
	"AXPopUpButton",
	"AXCheckBox",
	"AXRadioButton",
	"AXTextField",
	"AXSlider",
	"AXMenuItem",
	"AXTabGroup",
	"AXComboBox",
	"AXList",
	"AXTable",
	"AXScrollArea",
}

// Collector lifts interactive elements out of the accessibility tree and
// normalizes them into UIElements.
type Collector struct {
	provider AccessibilityProvider
	logger   *zap.Logger
}

// NewCollector wires a collector over the given platform provider.
func NewCollector(provider AccessibilityProvider, logger *zap.Logger) *Collector {
	return &Collector{
		provider: provider,
		logger:   logger.Named("perception"),
	}
}

// Discover scans every window of the target application for interactive
// elements. Individual window or role scan failures degrade to partial
// results; only a total enumeration failure returns an error. An empty
// result with a nil error means the app genuinely presented no elements.
func (c *Collector) Discover(ctx context.Context, targetApp string) ([]UIElement, error) {
	appName := NormalizeAppName(targetApp)

	windows, err := c.provider.Windows(ctx, appName)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerating windows of %q: %v", ErrDiscovery, appName, err)
	}

	// The dedup set lives for exactly one call: repeated Discover calls
	// must each report the full current tree.
	seen := make(map[string]struct{})
	elements := make([]UIElement, 0, 32)

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, role := range interactiveRoles {
			raws, err := c.provider.ElementsByRole(ctx, window, role)
			if err != nil {
				c.logger.Debug("Role scan failed, skipping",
					zap.String("window", window.Title),
					zap.String("role", role),
					zap.Error(err))
				continue
			}
			for _, raw := range raws {
				el := normalizeElement(raw, role)
				if _, dup := seen[el.ID]; dup {
					continue
				}
				seen[el.ID] = struct{}{}
				elements = append(elements, el)
			}
		}
	}

	c.logger.Debug("Discovery complete",
		zap.String("app", appName),
		zap.Int("windows", len(windows)),
		zap.Int("elements", len(elements)))
	return elements, nil
}

// Context reports what the automation is currently looking at, from the
// first window of the target app.
func (c *Collector) Context(ctx context.Context, targetApp string) (AppContext, error) {
	appName := NormalizeAppName(targetApp)

	windows, err := c.provider.Windows(ctx, appName)
	if err != nil {
		return AppContext{}, fmt.Errorf("%w: reading context of %q: %v", ErrDiscovery, appName, err)
	}

	appCtx := AppContext{AppName: appName}
	if len(windows) > 0 {
		appCtx.WindowTitle = windows[0].Title
		appCtx.FocusedElement = windows[0].FocusedLabel
	}
	return appCtx, nil
}

// RunningApps lists candidate target applications, with system surfaces
// filtered out.
func (c *Collector) RunningApps(ctx context.Context) ([]string, error) {
	apps, err := c.provider.RunningApps(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing running apps: %v", ErrDiscovery, err)
	}

	filtered := make([]string, 0, len(apps))
	for _, app := range apps {
		if IsBlacklistedApp(app) {
			continue
		}
		filtered = append(filtered, app)
	}
	return filtered, nil
}

// normalizeElement converts a raw accessibility record into a UIElement,
// applying the ID and label fallback chains.
func normalizeElement(raw RawElement, role string) UIElement {
	id := raw.Identifier
	if id == "" {
		// Positional fallback. Two same-role elements at the same rounded
		// origin alias to one ID; accepted trade-off for stability across
		// scans.
		id = fmt.Sprintf("%s_%d_%d", role, int(math.Round(raw.Position.X)), int(math.Round(raw.Position.Y)))
	}

	return UIElement{
		ID:                  id,
		Role:                role,
		Position:            raw.Position,
		Size:                raw.Size,
		CurrentValue:        raw.Value,
		AvailableOptions:    raw.Options,
		SupportedOperations: raw.Actions,
		Title:               labelFor(raw, role),
		Description:         descriptionFor(raw, role),
		Enabled:             raw.Enabled,
		Focused:             raw.Focused,
	}
}

// labelFor walks the text fallback chain. Only the final role-derived rung
// is flagged heuristic.
func labelFor(raw RawElement, role string) Label {
	return fallbackLabel(raw, role, raw.Title, raw.Description, raw.Help, raw.Value, raw.RoleDescription)
}

// descriptionFor uses the same chain as labelFor but leads with the
// description, so an element with only a title still gets a usable one.
func descriptionFor(raw RawElement, role string) Label {
	return fallbackLabel(raw, role, raw.Description, raw.Title, raw.Help, raw.Value, raw.RoleDescription)
}

func fallbackLabel(raw RawElement, role string, candidates ...string) Label {
	for _, candidate := range candidates {
		if text := strings.TrimSpace(candidate); text != "" {
			return Label{Text: text}
		}
	}
	return Label{
		Text: fmt.Sprintf("%s at (%d, %d)", roleNoun(role),
			int(math.Round(raw.Position.X)), int(math.Round(raw.Position.Y))),
		Heuristic: true,
	}
}

// roleNoun strips the AX prefix so heuristic labels read naturally.
func roleNoun(role string) string {
	return strings.ToLower(strings.TrimPrefix(role, "AX"))
}
