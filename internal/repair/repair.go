// Package repair recovers a usable JSON object from free-form model text.
// Models wrap JSON in markdown fences, prepend chatter, or emit trailing
// commas; rather than failing the run, an ordered list of pure strategies
// is applied until one yields an object.
package repair

import (
	"encoding/json"
	"regexp"
	"strings"
)

// RawTextKey is the single key of the fallback object returned when no
// strategy succeeds. Downstream consumers must treat that shape as
// "unparseable" and handle it as a degraded result.
const RawTextKey = "raw_text"

type strategy func(string) (map[string]any, bool)

// Parse never fails: it returns the first object a strategy recovers, or
// {"raw_text": raw} with the original input byte-identical for debugging.
func Parse(raw string) map[string]any {
	cleaned := stripNoise(raw)

	for _, s := range []strategy{
		func(string) (map[string]any, bool) { return tryUnmarshal(raw) },
		tryUnmarshal,
		extractBraced,
		repairPunctuation,
	} {
		if v, ok := s(cleaned); ok {
			return v
		}
	}
	return map[string]any{RawTextKey: raw}
}

// IsRawFallback reports whether v is the degraded fallback shape.
func IsRawFallback(v map[string]any) bool {
	if len(v) != 1 {
		return false
	}
	_, ok := v[RawTextKey]
	return ok
}

var (
	fenceRe     = regexp.MustCompile("(?m)```json\\s*|```\\s*")
	logPrefixRe = regexp.MustCompile(`(?m)^\[?\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}\S*\]?\s*`)
)

// stripNoise removes line-leading timestamp prefixes and markdown code
// fences, the two kinds of wrapping observed around model JSON output.
func stripNoise(text string) string {
	text = logPrefixRe.ReplaceAllString(text, "")
	text = fenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

func tryUnmarshal(text string) (map[string]any, bool) {
	var v map[string]any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// extractBraced scans for the first '{' and takes the substring up to the
// matching '}' that returns nesting depth to zero, ignoring braces inside
// string literals.
func extractBraced(text string) (map[string]any, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return tryUnmarshal(text[start : i+1])
			}
		}
	}
	return nil, false
}

// repairPunctuation collapses newlines and strips trailing commas before
// closing braces/brackets, then parses again.
func repairPunctuation(text string) (map[string]any, bool) {
	repaired := strings.ReplaceAll(text, "\n", " ")
	repaired = strings.ReplaceAll(repaired, ",}", "}")
	repaired = strings.ReplaceAll(repaired, ", }", "}")
	repaired = strings.ReplaceAll(repaired, ",]", "]")
	repaired = strings.ReplaceAll(repaired, ", ]", "]")
	return tryUnmarshal(repaired)
}
