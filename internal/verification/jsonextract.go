// Package verification decides whether a person is an active professor by
// combining a stored profile, external evidence and an LLM or heuristic
// verdict.
package verification

import (
	"encoding/json"
	"strings"
)

// ExtractJSON makes a best effort to find a JSON object in model output.
// It tries, in order, the whole trimmed text, the first fenced code block
// and the span from the first '{' to the last '}'. It never fails loudly;
// ok is false when nothing decodes to an object.
func ExtractJSON(text string) (map[string]any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}

	if obj, ok := decodeObject(text); ok {
		return obj, true
	}

	if block, ok := fencedBlock(text); ok {
		if obj, ok := decodeObject(block); ok {
			return obj, true
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return decodeObject(text[start : end+1])
	}
	return nil, false
}

func decodeObject(s string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// fencedBlock returns the body of the first ``` block, skipping a language
// tag on the opening line.
func fencedBlock(text string) (string, bool) {
	start := strings.Index(text, "```")
	if start == -1 {
		return "", false
	}
	start += 3
	if nl := strings.Index(text[start:], "\n"); nl != -1 {
		start += nl + 1
	}
	end := strings.Index(text[start:], "```")
	if end == -1 {
		return "", false
	}
	return strings.TrimSpace(text[start : start+end]), true
}
