// File: internal/vision/models.go
package vision

// Point is a pixel coordinate suitable for a direct click.
type Point struct {
	ClickX float64 `json:"click_x"`
	ClickY float64 `json:"click_y"`
}

// Element is one UI element as the visual oracle perceived it. Coordinates
// are advisory only; the accessibility tree stays authoritative for IDs.
type Element struct {
	Kind          string   `json:"type"`
	PositionLabel string   `json:"position"`
	Text          string   `json:"text"`
	Purpose       string   `json:"purpose"`
	Traits        []string `json:"characteristics,omitempty"`
	TaskRelevant  bool     `json:"task_relevant"`
	Coordinates   *Point   `json:"coordinates,omitempty"`
}

// Analysis is the oracle's structured read of one screen capture.
type Analysis struct {
	ScreenDescription  string    `json:"screen_description"`
	Elements           []Element `json:"elements"`
	SafetyWarnings     []string  `json:"safety_warnings,omitempty"`
	AlternativeMethods []string  `json:"alternative_methods,omitempty"`
	TaskContext        string    `json:"task_context,omitempty"`
}
