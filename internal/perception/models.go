// File: internal/perception/models.go
package perception

// Point is a screen position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is an element's bounding box dimensions in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Label is element text with provenance. Heuristic labels were synthesized
// from role and position because the element exposed no usable text, and
// must never be treated as authoritative by downstream matching.
type Label struct {
	Text      string `json:"text"`
	Heuristic bool   `json:"heuristic,omitempty"`
}

// UIElement is one interactive element lifted from the accessibility tree.
type UIElement struct {
	ID                  string   `json:"id"`
	Role                string   `json:"role"`
	Position            Point    `json:"position"`
	Size                Size     `json:"size"`
	CurrentValue        string   `json:"current_value,omitempty"`
	AvailableOptions    []string `json:"available_options,omitempty"`
	SupportedOperations []string `json:"supported_operations,omitempty"`
	Title               Label    `json:"title"`
	Description         Label    `json:"description,omitempty"`
	Enabled             bool     `json:"enabled"`
	Focused             bool     `json:"focused"`
}

// SystemState is a point-in-time sample of ambient host conditions, given to
// the planner so it can weigh steps against things like low battery or a
// dropped network.
type SystemState struct {
	BatteryLevel  int     `json:"battery_level"`
	PowerSource   string  `json:"power_source"`
	NetworkStatus string  `json:"network_status"`
	MemoryUsage   float64 `json:"memory_usage"`
	CPUUsage      float64 `json:"cpu_usage"`
	Time          string  `json:"time"`
}

// AppContext identifies what the automation is currently looking at.
type AppContext struct {
	AppName        string `json:"app_name"`
	WindowTitle    string `json:"window_title"`
	FocusedElement string `json:"focused_element,omitempty"`
}

// Window is an opaque handle to one top-level window of the target app.
type Window struct {
	ID           string
	Title        string
	FocusedLabel string
}

// RawElement is what the platform accessibility layer reports for a single
// element before any normalization.
type RawElement struct {
	Identifier      string
	Role            string
	Position        Point
	Size            Size
	Title           string
	Description     string
	Help            string
	Value           string
	RoleDescription string
	Options         []string
	Actions         []string
	Enabled         bool
	Focused         bool
}
