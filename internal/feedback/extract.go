package feedback

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n(.*)\\n```$")

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// extractJSON pulls a JSON object out of a model response that may be
// wrapped in code fences or surrounded by prose.
func extractJSON(s string, v interface{}) bool {
	s = stripMarkdownFences(s)

	if json.Unmarshal([]byte(s), v) == nil {
		return true
	}

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return json.Unmarshal([]byte(s[start:i+1]), v) == nil
			}
		}
	}
	return false
}
