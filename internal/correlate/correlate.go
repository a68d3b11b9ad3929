// File: internal/correlate/correlate.go
package correlate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/vision"
)

// Correlation binds one accessibility element to the visual element that
// best describes it, with the evidence score behind the match.
type Correlation struct {
	UIElementID string               `json:"ui_element_id"`
	Visual      vision.Element       `json:"visual"`
	Score       int                  `json:"score"`
	Source      perception.UIElement `json:"-"`
}

// Result carries the matches plus bookkeeping counts. The counts are
// diagnostic only and never feed back into matching.
type Result struct {
	Correlations        []Correlation `json:"correlations"`
	TotalUIElements     int           `json:"total_ui_elements"`
	TotalVisualElements int           `json:"total_visual_elements"`
	MatchedElements     int           `json:"matched_elements"`
}

// genericTokens are texts too common to carry matching signal; a match that
// leans on one gets penalized so specific text wins ties.
var genericTokens = map[string]struct{}{
	"button": {},
	"click":  {},
	"icon":   {},
	"menu":   {},
	"link":   {},
	"field":  {},
	"item":   {},
	"label":  {},
}

// Correlator scores accessibility elements against visual-oracle elements.
// It is stateless and deterministic: identical inputs in identical order
// always yield identical output.
type Correlator struct {
	proximityThreshold float64
}

// NewCorrelator builds a correlator with the given spatial threshold in
// pixels.
func NewCorrelator(proximityThreshold float64) *Correlator {
	return &Correlator{proximityThreshold: proximityThreshold}
}

// Correlate matches each UI element to its best-scoring visual element,
// then resolves cross-element conflicts so no visual identity is claimed
// twice. Higher-scoring claims win; among equal scores the earlier UI
// element keeps its match.
func (c *Correlator) Correlate(uiElements []perception.UIElement, analysis *vision.Analysis) Result {
	result := Result{
		TotalUIElements: len(uiElements),
	}
	if analysis != nil {
		result.TotalVisualElements = len(analysis.Elements)
	}
	if analysis == nil || len(analysis.Elements) == 0 || len(uiElements) == 0 {
		result.Correlations = []Correlation{}
		return result
	}

	candidates := make([]Correlation, 0, len(uiElements))
	for _, ui := range uiElements {
		best := -1
		bestScore := 0
		for i, visual := range analysis.Elements {
			score := c.score(ui, visual)
			// Strictly greater: first-seen visual wins ties.
			if score > bestScore {
				best = i
				bestScore = score
			}
		}
		if best >= 0 {
			candidates = append(candidates, Correlation{
				UIElementID: ui.ID,
				Visual:      analysis.Elements[best],
				Score:       bestScore,
				Source:      ui,
			})
		}
	}

	// Global pass: at most one claim per visual identity, strongest first.
	// The sort is stable so equal scores preserve discovery order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	claimed := make(map[string]struct{}, len(candidates))
	kept := make([]Correlation, 0, len(candidates))
	for _, cand := range candidates {
		key := visualKey(cand.Visual)
		if _, taken := claimed[key]; taken {
			continue
		}
		claimed[key] = struct{}{}
		kept = append(kept, cand)
	}

	result.Correlations = kept
	result.MatchedElements = len(kept)
	return result
}

// score accumulates match evidence between one accessibility element and one
// visual element.
func (c *Correlator) score(ui perception.UIElement, visual vision.Element) int {
	score := 0

	if visual.Coordinates != nil {
		dx := visual.Coordinates.ClickX - ui.Position.X
		dy := visual.Coordinates.ClickY - ui.Position.Y
		if math.Hypot(dx, dy) < c.proximityThreshold {
			score += 3
		}
	}

	uiText := ""
	if !ui.Title.Heuristic {
		// Synthesized labels carry no real text signal.
		uiText = normalizeText(ui.Title.Text)
	}
	visText := normalizeText(visual.Text)

	if uiText != "" && visText != "" {
		if uiText == visText {
			score += 2
		} else if substringMatch(uiText, visText) {
			score += 2
		}
	}

	if isGeneric(uiText) || isGeneric(visText) {
		score--
	}

	roleKey := strings.ToLower(strings.TrimPrefix(ui.Role, "AX"))
	kindKey := normalizeText(visual.Kind)
	if roleKey != "" && kindKey != "" &&
		(strings.Contains(roleKey, kindKey) || strings.Contains(kindKey, roleKey)) {
		score++
	}

	desc := normalizeText(ui.Description.Text)
	purpose := normalizeText(visual.Purpose)
	if desc != "" && purpose != "" && (desc == purpose || substringMatch(desc, purpose)) {
		score++
	}

	return score
}

// substringMatch reports containment in either direction, requiring the
// shorter side to be long enough to be meaningful.
func substringMatch(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len([]rune(shorter)) <= 3 {
		return false
	}
	return strings.Contains(longer, shorter)
}

func isGeneric(text string) bool {
	if text == "" {
		return false
	}
	_, ok := genericTokens[text]
	return ok
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// visualKey is the identity under which a visual element can be claimed.
func visualKey(v vision.Element) string {
	return fmt.Sprintf("%s|%s|%s", normalizeText(v.Text), normalizeText(v.Kind), normalizeText(v.Purpose))
}
