// File: internal/vision/analyzer.go
package vision

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/axdriver/axdriver-cli/internal/llmclient"
)

// Analyzer is the visual-oracle boundary: raw screen bytes in, structured
// elements out. Implementations must be synchronous and side-effect free
// beyond the oracle call itself.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, goal string) (*Analysis, error)
}

// ScreenCapturer abstracts window capture. The capture implementation is a
// platform concern; the analyzer only consumes bytes.
type ScreenCapturer interface {
	Capture(ctx context.Context, appName string) ([]byte, error)
}

const analyzerSystemPrompt = `You are the visual perception layer of a desktop automation agent.
You receive a screenshot of the active application and the user's goal.
Describe the screen and list every UI element relevant to the goal.
Respond with a single JSON object:
{
  "screen_description": "one paragraph overview",
  "elements": [
    {
      "type": "button|popup|checkbox|field|slider|menu|tab|list|other",
      "position": "human description of where it sits",
      "text": "visible text, empty if none",
      "purpose": "what interacting with it does",
      "characteristics": ["notable visual traits"],
      "task_relevant": true,
      "coordinates": {"click_x": 0, "click_y": 0}
    }
  ],
  "safety_warnings": [],
  "alternative_methods": [],
  "task_context": "how the current screen relates to the goal"
}`

// GeminiAnalyzer implements Analyzer over the shared Gemini client, pacing
// oracle calls with a cooperative rate limiter.
type GeminiAnalyzer struct {
	client  llmclient.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

var _ Analyzer = (*GeminiAnalyzer)(nil)

// NewGeminiAnalyzer builds the analyzer. The limiter is shared with the
// planner so the combined call rate respects the configured floor.
func NewGeminiAnalyzer(client llmclient.Client, limiter *rate.Limiter, logger *zap.Logger) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		client:  client,
		limiter: limiter,
		logger:  logger.Named("vision"),
	}
}

// Analyze sends the capture to the oracle and decodes its element listing.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, image []byte, goal string) (*Analysis, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty screen capture")
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	response, err := a.client.Generate(ctx, llmclient.GenerationRequest{
		SystemPrompt:    analyzerSystemPrompt,
		UserPrompt:      fmt.Sprintf("Goal: %s\nAnalyze the attached screenshot.", goal),
		Image:           image,
		ImageMIMEType:   "image/png",
		Temperature:     0.2,
		ForceJSONFormat: true,
	})
	if err != nil {
		return nil, fmt.Errorf("visual analysis failed: %w", err)
	}

	payload := llmclient.ExtractJSON(response)
	var analysis Analysis
	if err := json.Unmarshal([]byte(payload), &analysis); err != nil {
		a.logger.Warn("Failed to unmarshal visual analysis",
			zap.String("raw_response", response),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal visual analysis: %w", err)
	}

	a.logger.Debug("Visual analysis complete",
		zap.Int("elements", len(analysis.Elements)),
		zap.Int("warnings", len(analysis.SafetyWarnings)))
	return &analysis, nil
}
