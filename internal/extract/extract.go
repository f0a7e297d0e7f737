// Package extract recovers a single well-formed JSON object from raw model
// output. Models wrap JSON in markdown fences, prepend prose, and append
// explanations containing stray braces; the scanner here tolerates all of
// that by tracking string literals and brace depth instead of matching
// greedily from the first '{' to the last '}'.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrNoStructuredOutput is returned when no balanced, parseable JSON object
// exists anywhere in the text.
var ErrNoStructuredOutput = errors.New("no structured output in response")

// MissingFieldsError reports required fields absent from the parsed object.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

var fenceRe = regexp.MustCompile("(?i)```[a-z]*\\s*")

// ExtractJSON returns the first balanced JSON object embedded in text.
//
// Markdown code fences are stripped first. The scan then walks the text
// character by character keeping a string-literal flag, an escape flag (only
// meaningful inside strings) and a brace depth counter; braces inside string
// values never affect the depth. Each time the depth returns to zero the
// candidate substring is validated, and the first candidate that parses wins.
// Unbalanced fragments and brace characters in surrounding prose are skipped
// naturally because their candidates fail validation or never close.
func ExtractJSON(text string) (string, error) {
	text = fenceRe.ReplaceAllString(text, "")

	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if inString && ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, nil
				}
				start = -1
			}
		}
	}

	return "", ErrNoStructuredOutput
}

// ParseObject extracts the embedded JSON object and unmarshals it, then
// verifies every required field is present. Field values are returned raw so
// callers can decode them into their own shapes.
func ParseObject(text string, required ...string) (map[string]json.RawMessage, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, ErrNoStructuredOutput
	}

	var missing []string
	for _, field := range required {
		if _, ok := obj[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingFieldsError{Fields: missing}
	}
	return obj, nil
}
