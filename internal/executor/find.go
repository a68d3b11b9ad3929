// File: internal/executor/find.go
package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
)

// findElement resolves a planner target against the live tree using ordered
// strategies: the stable identifier, then the title, then the positional
// fallback ID within a small tolerance. Elements can drift between the
// perception round and execution, so each strategy tolerates a miss.
func (e *DriverExecutor) findElement(ctx context.Context, target string, snapshot *planner.Snapshot) (ElementHandle, *perception.UIElement, error) {
	if target == "" || target == planner.TargetAll {
		return nil, nil, &codedError{code: ErrCodeInvalidParameters, msg: "step requires an element target"}
	}

	appName := ""
	var known *perception.UIElement
	if snapshot != nil {
		appName = snapshot.Context.AppName
		if el, ok := snapshot.ElementByID(target); ok {
			known = &el
		}
	}

	if handle, ok, err := e.driver.FindByIdentifier(ctx, appName, target); err != nil {
		return nil, nil, err
	} else if ok {
		return handle, known, nil
	}

	if known != nil && known.Title.Text != "" && !known.Title.Heuristic {
		if handle, ok, err := e.driver.FindByTitle(ctx, appName, known.Title.Text); err != nil {
			return nil, nil, err
		} else if ok {
			e.logger.Debug("Resolved element by title", zap.String("target", target), zap.String("title", known.Title.Text))
			return handle, known, nil
		}
	}

	role, x, y, ok := parsePositionalID(target)
	if !ok && known != nil {
		role, x, y, ok = known.Role, known.Position.X, known.Position.Y, true
	}
	if ok {
		if handle, found, err := e.driver.FindNear(ctx, appName, role, x, y, positionTolerance); err != nil {
			return nil, nil, err
		} else if found {
			e.logger.Debug("Resolved element by position", zap.String("target", target), zap.Float64("x", x), zap.Float64("y", y))
			return handle, known, nil
		}
	}

	return nil, nil, &codedError{code: ErrCodeElementNotFound, msg: fmt.Sprintf("element %q not found in %s", target, appName)}
}

// parsePositionalID splits a fallback identifier of the form role_x_y.
func parsePositionalID(id string) (role string, x, y float64, ok bool) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return "", 0, 0, false
	}
	xi, errX := strconv.Atoi(parts[len(parts)-2])
	yi, errY := strconv.Atoi(parts[len(parts)-1])
	if errX != nil || errY != nil {
		return "", 0, 0, false
	}
	role = strings.Join(parts[:len(parts)-2], "_")
	if role == "" {
		return "", 0, 0, false
	}
	return role, float64(xi), float64(yi), true
}
