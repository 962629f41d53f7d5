package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

// ErrNoJSONObject is returned when the input holds no {...} span
var ErrNoJSONObject = errors.New("no JSON object found")

var (
	fenceRe        = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKey    = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharsRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON extracts and parses a JSON object from AI output that may contain:
// - Pure JSON
// - JSON wrapped in markdown code fences (```json ... ```)
// - JSON with surrounding prose
// - Lightly malformed JSON (trailing commas, unquoted keys, single quotes)
func ParseAIJSON(input string, target interface{}) error {
	payload, err := ExtractJSONPayload(input)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(payload), target); err == nil {
		return nil
	}

	if err := json.Unmarshal([]byte(cleanAndFixJSON(payload)), target); err != nil {
		return fmt.Errorf("failed to parse JSON from input %q: %w", truncateString(input, 100), err)
	}
	return nil
}

// ExtractJSONPayload strips a markdown code fence if present, then returns the
// text between the first '{' and the last '}' of what remains.
func ExtractJSONPayload(input string) (string, error) {
	s := strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if s == "" {
		return "", fmt.Errorf("empty input")
	}

	s = stripCodeFence(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// stripCodeFence returns the body of the first fenced block, or the input unchanged.
// An unterminated opening fence is dropped.
func stripCodeFence(s string) string {
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		rest := s[idx+3:]
		// drop the language tag on the opening line
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// cleanAndFixJSON attempts to fix common JSON formatting issues
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)

	// Remove trailing commas before closing braces/brackets
	s = trailingComma.ReplaceAllString(s, "$1")

	// {word: "value"} -> {"word": "value"}
	s = unquotedKey.ReplaceAllString(s, `$1"$2"$3`)

	s = fixSingleQuotes(s)

	return controlCharsRe.ReplaceAllString(s, "")
}

// fixSingleQuotes converts single-quoted strings to double quotes outside double-quoted strings
func fixSingleQuotes(input string) string {
	var result strings.Builder
	inDouble := false
	inSingle := false
	escape := false

	for _, ch := range input {
		if escape {
			result.WriteRune(ch)
			escape = false
			continue
		}

		switch {
		case ch == '\\':
			escape = true
			result.WriteRune(ch)
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			result.WriteRune(ch)
		case ch == '"' && inSingle:
			result.WriteString(`\"`)
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			result.WriteRune('"')
		default:
			result.WriteRune(ch)
		}
	}

	return result.String()
}

// truncateString truncates a string to maxLen runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// TruncateRunes cuts s to at most n runes without splitting multi-byte characters
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
