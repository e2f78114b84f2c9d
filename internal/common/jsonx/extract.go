// internal/common/jsonx/extract.go
package jsonx

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrDecode is matched by every failure returned from Extract.
var ErrDecode = errors.New("DECODE_FAILED")

var (
	fencePattern         = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

const snippetLimit = 200

// ParseError reports text from which no JSON value could be recovered.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v (input: %q)", ErrDecode, e.Err, e.Snippet)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrDecode
}

// Extract recovers a single JSON value from model output. The text is parsed
// as-is first; then the first fenced block (if any) is narrowed to its first
// balanced object or array and parsed; then a repair pass unescapes literal
// \n and \" and strips trailing commas before a final attempt.
func Extract(text string) (interface{}, error) {
	var value interface{}
	if err := UnmarshalFromString(text, &value); err == nil {
		return value, nil
	}

	candidate := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if span, ok := balancedSpan(candidate, '{', '}'); ok {
		candidate = span
	} else if span, ok := balancedSpan(candidate, '[', ']'); ok {
		candidate = span
	}

	value = nil
	if err := UnmarshalFromString(candidate, &value); err == nil {
		return value, nil
	}

	repaired := strings.ReplaceAll(candidate, `\n`, "\n")
	repaired = strings.ReplaceAll(repaired, `\"`, `"`)
	repaired = trailingCommaPattern.ReplaceAllString(repaired, "$1")

	value = nil
	err := UnmarshalFromString(repaired, &value)
	if err == nil {
		return value, nil
	}

	return nil, &ParseError{Snippet: snippet(text), Err: err}
}

// balancedSpan returns the substring from the first open rune to the rune
// that brings nesting depth back to zero. Only the given pair is counted.
func balancedSpan(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func snippet(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	return s[:snippetLimit] + "..."
}
