// internal/common/genai/normalize.go
package genai

import (
	"strings"

	"cinesense/internal/common/jsonx"
)

// Normalize looks for JSON-bearing text inside a structured provider reply.
// Values that already carry recommendations are returned untouched, and the
// raw value comes back when no candidate decodes.
func Normalize(value interface{}) interface{} {
	obj, ok := value.(map[string]interface{})
	if !ok {
		return value
	}
	if _, ok := obj["recommendations"]; ok {
		return obj
	}

	for _, candidate := range candidateTexts(obj) {
		if candidate == "" {
			continue
		}
		if decoded, err := jsonx.Extract(candidate); err == nil {
			return decoded
		}
	}
	return obj
}

func candidateTexts(obj map[string]interface{}) []string {
	var out []string

	for _, field := range []string{"content", "text", "output"} {
		if s, ok := obj[field].(string); ok {
			out = append(out, s)
		}
	}

	if items, ok := obj["output"].([]interface{}); ok {
		out = append(out, joinEntries(items, func(m map[string]interface{}) (string, bool) {
			if s, ok := m["content"].(string); ok {
				return s, true
			}
			s, ok := m["text"].(string)
			return s, ok
		}))
	}

	if items, ok := obj["choices"].([]interface{}); ok {
		out = append(out, joinEntries(items, func(m map[string]interface{}) (string, bool) {
			if msg, ok := m["message"].(map[string]interface{}); ok {
				if s, ok := msg["content"].(string); ok {
					return s, true
				}
			}
			s, ok := m["text"].(string)
			return s, ok
		}))
	}

	if whole, err := jsonx.MarshalToString(obj); err == nil {
		out = append(out, whole)
	}
	return out
}

// joinEntries renders each array entry through pick, falling back to the
// entry's JSON, and joins them with newlines.
func joinEntries(items []interface{}, pick func(map[string]interface{}) (string, bool)) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			if s, ok := pick(m); ok {
				parts = append(parts, s)
				continue
			}
		}
		s, err := jsonx.MarshalToString(item)
		if err != nil {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n")
}

// decode turns a provider result into a JSON value.
func decode(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return jsonx.Extract(v)
	case []byte:
		return jsonx.Extract(string(v))
	default:
		return Normalize(v), nil
	}
}

// decodeBody prefers a JSON document and falls back to the raw text.
func decodeBody(body []byte) interface{} {
	var v interface{}
	if err := jsonx.Unmarshal(body, &v); err == nil && v != nil {
		return v
	}
	return string(body)
}
