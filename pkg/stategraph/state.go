package stategraph

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// State is the shared data threaded through a graph execution: an open
// mapping from field name to value. Each invocation owns its State
// exclusively; the engine never mutates a State in place, it builds a new
// one per merge. Step functions should treat the map they receive as
// read-only and express changes through the returned Delta.
type State map[string]any

// Delta is a partial state update returned by a step function. Every key
// present overwrites the prior value at that key; absent keys persist.
type Delta map[string]any

// Merge applies d to s and returns the resulting state. The receiver is
// never modified. Merging is last-writer-wins at the top-level key; there
// is no deep merge of nested containers. Re-applying the same delta is a
// no-op after the first application.
func (s State) Merge(d Delta) State {
	if len(d) == 0 {
		if s == nil {
			return State{}
		}
		return s
	}
	next := make(State, len(s)+len(d))
	for k, v := range s {
		next[k] = v
	}
	for k, v := range d {
		next[k] = v
	}
	return next
}

// Clone returns a shallow copy of the state.
func (s State) Clone() State {
	next := make(State, len(s))
	for k, v := range s {
		next[k] = v
	}
	return next
}

// Has reports whether the field has been written.
func (s State) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the string value for key, or defaultVal if the field is
// missing or not a string.
func (s State) String(key, defaultVal string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal if missing or not
// convertible. Float values with no fractional part convert; JSON numbers
// decode as float64, so this matters after a checkpoint round-trip.
func (s State) Int(key string, defaultVal int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal if missing or not
// a bool.
func (s State) Bool(key string, defaultVal bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return defaultVal
}

// Strings returns the string-slice value for key. []any values with
// string elements are converted, which is the shape a resumed state has
// after JSON deserialization. Missing or mistyped fields return nil.
func (s State) Strings(key string) []string {
	switch v := s[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil
			}
			out = append(out, str)
		}
		return out
	}
	return nil
}

// Len returns the length of a slice-valued field, or 0 when the field is
// missing or not a slice the engine knows how to measure.
func (s State) Len(key string) int {
	switch v := s[key].(type) {
	case []any:
		return len(v)
	case []string:
		return len(v)
	case nil:
		return 0
	}
	n, err := DecodeField[[]any](s, key)
	if err != nil {
		return 0
	}
	return len(n)
}

// DecodeField decodes the value at key into T. Typed values pass through
// directly; generic map/slice values (the shape produced by resuming from
// a JSON checkpoint) are decoded with mapstructure using json field tags.
// A missing field yields the zero value and no error.
func DecodeField[T any](s State, key string) (T, error) {
	var out T
	raw, ok := s[key]
	if !ok || raw == nil {
		return out, nil
	}
	if typed, ok := raw.(T); ok {
		return typed, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("decode field %q: %w", key, err)
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("decode field %q: %w", key, err)
	}
	return out, nil
}
