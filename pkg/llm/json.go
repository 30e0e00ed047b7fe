package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON unmarshals the JSON payload embedded in a model response
// into v. Models frequently wrap JSON in ```json fences or surround it
// with prose; this strips a fenced block first, then falls back to the
// outermost brace or bracket pair, then to the raw text.
func DecodeJSON(text string, v any) error {
	payload := ExtractJSON(text)
	if payload == "" {
		return fmt.Errorf("no JSON payload in response")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

// ExtractJSON returns the JSON payload embedded in text, or "" when none
// is found.
func ExtractJSON(text string) string {
	if fenced, ok := extractFenced(text); ok {
		return fenced
	}
	if body, ok := extractDelimited(text, '{', '}'); ok {
		return body
	}
	if body, ok := extractDelimited(text, '[', ']'); ok {
		return body
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	return trimmed
}

// extractFenced pulls the body of a ```json ... ``` block.
func extractFenced(text string) (string, bool) {
	start := strings.Index(text, "```json")
	if start < 0 {
		return "", false
	}
	rest := text[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// extractDelimited returns the span from the first open delimiter to the
// last close delimiter.
func extractDelimited(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
