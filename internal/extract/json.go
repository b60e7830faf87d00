package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonFence = regexp.MustCompile("(?i)```json")

// JSON pulls one JSON object out of free-form model text. Code fences are
// stripped from anywhere in the text, then a strict parse is attempted; on
// failure the first-{-to-last-} span is tried. Returns nil when neither parse
// succeeds; no partial structure is ever guessed.
func JSON(text string) map[string]interface{} {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := jsonFence.ReplaceAllString(text, "```")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return parsed
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil
	}

	parsed = nil
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err == nil {
		return parsed
	}
	return nil
}
