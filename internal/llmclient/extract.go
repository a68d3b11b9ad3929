// File: internal/llmclient/extract.go
package llmclient

import (
	"fmt"
	"regexp"
	"strings"
)

// A regex to robustly extract a JSON object from a markdown code block.
var jsonBlockRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))

// ExtractJSON pulls the JSON payload out of an oracle response, handling
// markdown code fences and free text around a brace-bounded object. Returns
// an empty string when no candidate payload exists.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	matches := jsonBlockRegex.FindStringSubmatch(response)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	firstBracket := strings.Index(response, "{")
	lastBracket := strings.LastIndex(response, "}")
	if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
		return response[firstBracket : lastBracket+1]
	}
	return response
}
