// File: internal/executor/keys.go
package executor

import "strings"

// keyCodes maps key names the planner emits to virtual key codes.
var keyCodes = map[string]int{
	"enter":     36,
	"return":    36,
	"tab":       48,
	"space":     49,
	"delete":    51,
	"backspace": 51,
	"escape":    53,
	"esc":       53,
	"left":      123,
	"right":     124,
	"down":      125,
	"up":        126,
}

// KeyCode resolves a key name case-insensitively.
func KeyCode(name string) (int, bool) {
	code, ok := keyCodes[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}
