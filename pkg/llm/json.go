package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON parses a JSON object out of a model reply. Models asked
// for JSON-only output still occasionally wrap the object in prose, so
// after a direct parse fails this retries on the span from the first
// '{' to the last '}'. Returns false when no object can be recovered.
func ExtractJSON(text string) (json.RawMessage, bool) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return json.RawMessage(trimmed), true
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}
	candidate := trimmed[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}
