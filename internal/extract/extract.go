// Package extract normalizes heterogeneous pipeline payloads into structured
// values. Agents frequently return JSON wrapped in a markdown code fence;
// payloads persisted through state updates may already be decoded maps.
package extract

import (
	"encoding/json"
	"strings"
)

// Value normalizes a payload into a structured value. Already-structured
// payloads (maps, slices) pass through untouched. Strings are unwrapped from
// an optional code fence and parsed as JSON. Returns ok=false when the
// payload is absent or unparseable; extraction failures never become task
// failures, the field is simply omitted.
func Value(payload interface{}) (interface{}, bool) {
	switch v := payload.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		return v, true
	case []interface{}:
		return v, true
	case json.RawMessage:
		return parse(string(v))
	case []byte:
		return parse(string(v))
	case string:
		return parse(v)
	default:
		return nil, false
	}
}

func parse(raw string) (interface{}, bool) {
	raw = StripFence(raw)
	if raw == "" {
		return nil, false
	}
	var out interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, false
	}
	switch out.(type) {
	case map[string]interface{}, []interface{}:
		return out, true
	}
	// Bare scalars are not structured results.
	return nil, false
}

// StripFence removes a surrounding three-backtick code fence, including an
// optional language tag on the opening line.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag up to the first newline.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimSpace(s)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
