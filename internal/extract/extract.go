// Package extract pulls structured JSON out of free-text model output.
//
// Parsing is attempted strictly first (the whole response is a JSON object),
// then by locating the first balanced {...} span. Callers that need a
// non-JSON fallback apply their own named heuristic on ErrNoObject.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrNoObject indicates no decodable JSON object was found in the text.
var ErrNoObject = errors.New("no JSON object found")

// Object returns the JSON object text contained in s.
func Object(s string) (string, bool) {
	trimmed := strings.TrimSpace(stripFence(s))
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, true
	}

	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := balancedEnd(s, start); end > start {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// Decode finds the first JSON object in s and unmarshals it into v.
func Decode(s string, v any) error {
	obj, ok := Object(s)
	if !ok {
		return fmt.Errorf("%w in response: %s", ErrNoObject, Truncate(s, 200))
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("%w: %v (object: %s)", ErrNoObject, err, Truncate(obj, 200))
	}
	return nil
}

// balancedEnd returns the index of the brace closing the one at start,
// ignoring braces inside string literals, or -1.
func balancedEnd(s string, start int) int {
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
				return i
			}
		}
	}
	return -1
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(t), "```")
}

// Truncate shortens s to maxLen runes, appending an ellipsis when cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
