// Package llmtext recovers structured JSON from chat-completion text output.
// Models routinely wrap JSON in markdown code fences or surround it with
// prose; this package strips common fences, attempts strict JSON, and falls
// back to scanning for the first balanced {...} substring before giving up.
package llmtext

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripFences removes a leading/trailing ```json or ``` fence, if present.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = strings.TrimSpace(after)
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = strings.TrimSpace(before)
	}
	return s
}

// ExtractJSONObject scans s for the first brace-balanced {...} substring.
// It tracks string literals and escapes so braces inside quoted strings are
// not mistaken for structural braces. Returns ok=false if no balanced object
// is found.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseJSON attempts to unmarshal the model's text output into v. It first
// tries the raw text, then the fence-stripped text, then a brace-scan
// recovery of the stripped text. The first of these that parses wins.
func ParseJSON(text string, v any) error {
	candidates := []string{text}
	stripped := StripFences(text)
	if stripped != text {
		candidates = append(candidates, stripped)
	}
	if obj, ok := ExtractJSONObject(stripped); ok && obj != stripped {
		candidates = append(candidates, obj)
	}

	var lastErr error
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("llmtext: no candidate parsed as JSON: %w", lastErr)
}
