// File: internal/perception/apps.go
package perception

import (
	"strings"
	"time"
)

// appNameAliases maps common short names to the names the accessibility
// layer actually reports.
var appNameAliases = map[string]string{
	"chrome":             "Google Chrome",
	"system preferences": "System Settings",
	"iterm":              "iTerm2",
}

// appBlacklist names system surfaces that must never be selected as
// automation targets.
var appBlacklist = map[string]struct{}{
	"siri":                    {},
	"voiceover":               {},
	"dock":                    {},
	"spotlight":               {},
	"notification center":     {},
	"control center":          {},
	"window server":           {},
	"screenshot":              {},
	"universalaccessauthwarn": {},
}

// NormalizeAppName resolves user-facing short names to canonical app names.
// Unknown names pass through unchanged.
func NormalizeAppName(name string) string {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := appNameAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// IsBlacklistedApp reports whether the app is a system surface excluded from
// target selection.
func IsBlacklistedApp(name string) bool {
	_, blocked := appBlacklist[strings.ToLower(strings.TrimSpace(name))]
	return blocked
}

// AppClass buckets applications by how long they typically need between
// launch and a usable accessibility tree.
type AppClass int

const (
	AppClassDefault AppClass = iota
	AppClassBrowser
	AppClassHeavy
	AppClassLight
)

var browserApps = map[string]struct{}{
	"safari":         {},
	"google chrome":  {},
	"firefox":        {},
	"microsoft edge": {},
	"arc":            {},
}

var heavyApps = map[string]struct{}{
	"xcode":          {},
	"final cut pro":  {},
	"logic pro":      {},
	"android studio": {},
	"intellij idea":  {},
	"photoshop":      {},
}

var lightApps = map[string]struct{}{
	"calculator": {},
	"notes":      {},
	"textedit":   {},
	"stickies":   {},
	"terminal":   {},
	"iterm2":     {},
}

// ClassifyApp buckets an app name into a load-weight class.
func ClassifyApp(name string) AppClass {
	key := strings.ToLower(NormalizeAppName(name))
	if _, ok := browserApps[key]; ok {
		return AppClassBrowser
	}
	if _, ok := heavyApps[key]; ok {
		return AppClassHeavy
	}
	if _, ok := lightApps[key]; ok {
		return AppClassLight
	}
	return AppClassDefault
}

// LaunchWaits carries the per-class post-launch waits from configuration.
type LaunchWaits struct {
	Browser time.Duration
	Heavy   time.Duration
	Light   time.Duration
	Default time.Duration
}

// WaitFor returns how long to give the named app between launch and the
// first discovery retry.
func (w LaunchWaits) WaitFor(appName string) time.Duration {
	switch ClassifyApp(appName) {
	case AppClassBrowser:
		return w.Browser
	case AppClassHeavy:
		return w.Heavy
	case AppClassLight:
		return w.Light
	default:
		return w.Default
	}
}
