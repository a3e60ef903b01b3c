package ollama

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	errNoJSONObject = errors.New("no JSON object in model output")
	fencedBlock     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
)

// recoverJSONObject tries, in order: the whole trimmed output, each fenced
// code block, then every balanced-brace span from left to right.
func recoverJSONObject(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)
	if obj, ok := decodeObject(trimmed); ok {
		return obj, nil
	}

	for _, m := range fencedBlock.FindAllStringSubmatch(trimmed, -1) {
		if obj, ok := decodeObject(strings.TrimSpace(m[1])); ok {
			return obj, nil
		}
	}

	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		if end := balancedEnd(trimmed, start); end > start {
			if obj, ok := decodeObject(trimmed[start : end+1]); ok {
				return obj, nil
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, errNoJSONObject
}

func decodeObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// balancedEnd returns the index of the brace closing s[start], ignoring
// braces inside string literals, or -1.
func balancedEnd(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
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
