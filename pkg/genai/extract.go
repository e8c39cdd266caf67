package genai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
)

// fencedJSONPattern matches a ```json ... ``` (or bare ```) fenced block.
var fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSON extracts a JSON object from free-form model text and unmarshals
// it into target. It first looks for a fenced code block, then for the first
// balanced {...} span in the text. Models wrap JSON in prose and markdown
// unpredictably, so both stages are required.
func ExtractJSON(text string, target interface{}) error {
	raw, err := findJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("%w: unmarshaling extracted object: %v", triageerrors.ErrParse, err)
	}
	return nil
}

// findJSONObject returns the most plausible JSON object substring of text.
func findJSONObject(text string) (string, error) {
	if m := fencedJSONPattern.FindStringSubmatch(text); len(m) == 2 {
		return m[1], nil
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in response", triageerrors.ErrParse)
	}

	// Scan for the matching close brace, respecting strings and escapes.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", fmt.Errorf("%w: unterminated JSON object in response", triageerrors.ErrParse)
}
