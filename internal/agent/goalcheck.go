// File: internal/agent/goalcheck.go
package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
)

// Indicator phrasing like "network_status changes from disconnected to
// connected". Only the destination value matters for the check; the starting
// value is already gone. Matching is exact, never substring: "disconnected"
// must not satisfy a "connected" destination.
var indicatorDirectionalRe = regexp.MustCompile(`(?i)^(.+?)\s+changes?\s+from\s+.+?\s+to\s+(.+)$`)

// Indicator phrasing like "Network Mode is On" or "status shows Connected".
var indicatorStateRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:is|becomes|shows?|reads?|displays?)\s+(.+)$`)

// Goal phrasing like "change the mode from Off to Wi-Fi".
var directionalGoalRe = regexp.MustCompile(`(?i)\bfrom\s+.+?\s+to\s+(.+?)\s*$`)

// Goal phrasing like "set the volume to 50" or "switch the popup to Ethernet".
var setToGoalRe = regexp.MustCompile(`(?i)\b(?:set|select|switch|change|turn)\b.*?\bto\s+(.+?)\s*$`)

var quotedTextRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

// goalAchieved decides whether the observed screen satisfies the goal. The
// check is layered: completion indicators from the strategic plan are the
// authoritative test when present; otherwise goal-family heuristics apply,
// and fully generic goals defer to the oracle's own confidence.
func (a *Agent) goalAchieved(goal string, snapshot *planner.Snapshot, plan *planner.Plan, longRange *planner.LongRangePlan) bool {
	if snapshot == nil || plan == nil {
		return false
	}

	if longRange != nil {
		for _, indicator := range longRange.CompletionIndicators {
			if indicatorSatisfied(snapshot, indicator) {
				return true
			}
		}
		// No indicator fired. When the plan supplied indicators at all,
		// still give the goal-family heuristics a say: indicators can be
		// phrased in terms the screen never echoes verbatim.
	}

	lowered := strings.ToLower(goal)

	switch {
	case containsAny(lowered, "terminal", "command", "echo", "bash", "shell"):
		return plan.Confidence > 0.8
	case containsAny(lowered, "search", "find", "look for"):
		if text, ok := quotedGoalText(goal); ok && !snapshotContainsText(snapshot, text) {
			return false
		}
		return plan.Confidence > 0.7
	case containsAny(lowered, "calculate", "calculator", "math"):
		return plan.Confidence > 0.8
	case containsAny(lowered, "pause", "play", "video", "watch", "fullscreen", "full screen"):
		return mediaGoalAchieved(lowered, snapshot)
	}

	if target, ok := directionalTarget(goal); ok {
		return snapshotHasValue(snapshot, target)
	}
	if target, ok := setToTarget(goal); ok {
		return snapshotHasValue(snapshot, target)
	}
	if text, ok := quotedGoalText(goal); ok {
		return snapshotContainsText(snapshot, text) && plan.Confidence >= a.cfg.MinConfidenceWarn
	}

	// Generic goals: the oracle proposed no further work and is confident.
	return len(plan.Steps) == 0 && plan.Confidence >= a.cfg.GoalConfidence
}

// indicatorSatisfied evaluates one completion indicator against the screen.
// Structured phrasings name a subject and a desired value; anything else is
// treated as literal text to find among element labels and values.
func indicatorSatisfied(snapshot *planner.Snapshot, indicator string) bool {
	indicator = strings.TrimSpace(indicator)
	if indicator == "" {
		return false
	}
	if m := indicatorDirectionalRe.FindStringSubmatch(indicator); m != nil {
		return subjectHasValue(snapshot, cleanTarget(m[1]), cleanTarget(m[2]))
	}
	if m := indicatorStateRe.FindStringSubmatch(indicator); m != nil {
		if subjectHasValue(snapshot, cleanTarget(m[1]), cleanTarget(m[2])) {
			return true
		}
	}
	return snapshotContainsText(snapshot, indicator)
}

// subjectHasValue checks whether the named thing currently carries exactly
// the wanted value. System attributes are consulted first, then any element
// whose title or description names the subject.
func subjectHasValue(snapshot *planner.Snapshot, subject, want string) bool {
	subj := strings.ToLower(strings.ReplaceAll(subject, "_", " "))
	state := snapshot.SystemState

	switch {
	case strings.Contains(subj, "network"):
		if strings.EqualFold(strings.TrimSpace(state.NetworkStatus), want) {
			return true
		}
	case strings.Contains(subj, "power"):
		if strings.EqualFold(strings.TrimSpace(state.PowerSource), want) {
			return true
		}
	case strings.Contains(subj, "battery"):
		if strconv.Itoa(state.BatteryLevel) == strings.TrimSuffix(want, "%") {
			return true
		}
	case strings.Contains(subj, "time"):
		if strings.EqualFold(strings.TrimSpace(state.Time), want) {
			return true
		}
	}

	for _, el := range snapshot.UIElements {
		if !elementNames(el, subj) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(el.CurrentValue), want) {
			return true
		}
	}
	return false
}

// elementNames reports whether the element's human labels identify the
// subject. Heuristic titles are positional synthetics and never count.
func elementNames(el perception.UIElement, subj string) bool {
	if !el.Title.Heuristic && el.Title.Text != "" {
		title := strings.ToLower(el.Title.Text)
		if strings.Contains(title, subj) || strings.Contains(subj, title) {
			return true
		}
	}
	if !el.Description.Heuristic && el.Description.Text != "" {
		desc := strings.ToLower(el.Description.Text)
		if strings.Contains(desc, subj) || strings.Contains(subj, desc) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func directionalTarget(goal string) (string, bool) {
	m := directionalGoalRe.FindStringSubmatch(goal)
	if m == nil {
		return "", false
	}
	return cleanTarget(m[1]), true
}

func setToTarget(goal string) (string, bool) {
	m := setToGoalRe.FindStringSubmatch(goal)
	if m == nil {
		return "", false
	}
	return cleanTarget(m[1]), true
}

func quotedGoalText(goal string) (string, bool) {
	m := quotedTextRe.FindStringSubmatch(goal)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}

func cleanTarget(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'.,!`)
}

// snapshotHasValue reports whether any element currently carries the value.
func snapshotHasValue(snapshot *planner.Snapshot, target string) bool {
	want := strings.ToLower(target)
	for _, el := range snapshot.UIElements {
		if strings.EqualFold(strings.TrimSpace(el.CurrentValue), target) {
			return true
		}
		if want != "" && strings.Contains(strings.ToLower(el.CurrentValue), want) {
			return true
		}
	}
	return false
}

// snapshotContainsText reports whether any element value or title carries
// the text, which is how typed search or terminal input shows up.
func snapshotContainsText(snapshot *planner.Snapshot, text string) bool {
	want := strings.ToLower(text)
	for _, el := range snapshot.UIElements {
		if strings.Contains(strings.ToLower(el.CurrentValue), want) {
			return true
		}
		if !el.Title.Heuristic && strings.Contains(strings.ToLower(el.Title.Text), want) {
			return true
		}
	}
	return false
}

// mediaGoalAchieved handles player goals structurally: a playing video shows
// a pause control, a paused one shows play.
func mediaGoalAchieved(lowered string, snapshot *planner.Snapshot) bool {
	switch {
	case strings.Contains(lowered, "pause"):
		return hasControlTitled(snapshot, "play") && !hasControlTitled(snapshot, "pause")
	case strings.Contains(lowered, "play"):
		return hasControlTitled(snapshot, "pause")
	case strings.Contains(lowered, "fullscreen") || strings.Contains(lowered, "full screen"):
		return hasControlTitled(snapshot, "exit full screen")
	default:
		// "watch a video" style goals: any transport control on screen
		// means a player is actually presenting media.
		return hasControlTitled(snapshot, "pause") || hasControlTitled(snapshot, "seek slider")
	}
}

func hasControlTitled(snapshot *planner.Snapshot, title string) bool {
	want := strings.ToLower(title)
	for _, el := range snapshot.UIElements {
		if el.Title.Heuristic {
			continue
		}
		if strings.Contains(strings.ToLower(el.Title.Text), want) {
			return true
		}
	}
	return false
}
