package llm

import (
	"fmt"
	"strings"
)

// NormalizeContent converts whatever shape a provider returned as message
// content into plain text. Providers disagree here: some return a raw
// string, some a list of content blocks, some a single mapping. The rules
// are applied in order and the function never panics:
//
//   - nil            -> ""
//   - string         -> unchanged
//   - ordered blocks -> per block prefer "text", then "content", else the
//     block's string form; joined with newline
//   - mapping        -> stringified
//   - anything else  -> stringified
func NormalizeContent(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, blockText(item))
		}
		return strings.Join(parts, "\n")
	case []map[string]any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, blockText(item))
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}

func blockText(item any) string {
	block, ok := item.(map[string]any)
	if !ok {
		return fmt.Sprint(item)
	}
	if text, ok := block["text"]; ok && text != nil {
		return fmt.Sprint(text)
	}
	if inner, ok := block["content"]; ok && inner != nil {
		return fmt.Sprint(inner)
	}
	return fmt.Sprint(block)
}
