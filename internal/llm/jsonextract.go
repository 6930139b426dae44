package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON pulls the first JSON object out of model output. Models often
// wrap JSON in prose or markdown fences, so parsing is attempted in order:
// the whole text, a fenced code block, then outermost brace matching.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, eris.New("llm: empty response")
	}

	if raw, ok := tryParse(trimmed); ok {
		return raw, nil
	}

	if m := fencedJSONRe.FindStringSubmatch(trimmed); m != nil {
		if raw, ok := tryParse(m[1]); ok {
			return raw, nil
		}
	}

	if candidate := outermostBraces(trimmed); candidate != "" {
		if raw, ok := tryParse(candidate); ok {
			return raw, nil
		}
	}

	return nil, eris.New("llm: no parseable JSON object in response")
}

func tryParse(s string) (json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// outermostBraces returns the substring from the first '{' to its matching
// closing brace, tracking string literals so braces inside values don't
// unbalance the scan.
func outermostBraces(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
