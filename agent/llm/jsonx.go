package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls one JSON object out of free-form text. Models routinely
// wrap a requested payload in prose, so the only robust strategy short of a
// full grammar is to parse the span between the first '{' and the last '}'.
// A parse failure is a soft miss: the function returns nil and never
// returns an error. Only objects qualify; a bare list or scalar is nil.
func ExtractJSON(text string) map[string]any {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil
	}
	return parsed
}

// ExtractJSONInto decodes the embedded JSON object directly into v.
// Returns false on any miss or decode failure, leaving v untouched on a
// locate failure and possibly partially filled on a decode failure, so
// callers should treat false as "use the fallback value".
func ExtractJSONInto(text string, v any) bool {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return false
	}

	raw := []byte(text[start : end+1])
	if !json.Valid(raw) {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
