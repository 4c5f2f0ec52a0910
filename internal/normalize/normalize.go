// Package normalize repairs and coerces loosely structured model output into
// the shape the entity models expect.
//
// Language models wrap JSON in prose or markdown fences, emit malformed
// punctuation, and return scalars where lists are expected. Parse locates the
// JSON payload inside the raw response, repairs it when a direct parse fails,
// and Coerce fixes the recurring type-level inconsistencies. Extractors never
// consume raw model text directly; everything flows through this package.
package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError reports that no JSON value was recoverable from a model
// response after all extraction and repair strategies were exhausted. It
// carries both the original and repaired candidate text for diagnostics.
type ParseError struct {
	// Original is the JSON candidate as extracted from the response, before
	// repair. Empty if no JSON-like structure was found at all.
	Original string

	// Repaired is the candidate after the repair pass. Empty if repair was
	// never attempted.
	Repaired string

	// Err is the underlying decode error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Original == "" {
		return "normalize: no JSON found in response"
	}
	return fmt.Sprintf("normalize: could not parse JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	fencedRe = regexp.MustCompile("(?is)```(?:json)?\\s*([\\[{].*?[\\]}])\\s*```")
	greedyRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// RepairHook, when non-nil, observes every candidate that failed the direct
// parse and went through [Repair]: "repaired" when the repaired text decoded,
// "failed" otherwise. Set it once at startup, before any parsing runs.
var RepairHook func(outcome string)

func reportRepair(outcome string) {
	if RepairHook != nil {
		RepairHook(outcome)
	}
}

// Parse extracts and decodes one JSON value (object or array) from a raw
// model response.
//
// Extraction strategies are attempted in order, first success wins:
//  1. content inside a fenced code block labeled json or unlabeled;
//  2. a bracket-balanced substring found by scanning from the first opening
//     bracket and tracking nesting depth until it returns to zero;
//  3. a greedy {...} regex match as last resort.
//
// If the extracted candidate fails to decode, one repair pass runs and the
// parse is attempted once more. Failure after repair returns a *ParseError.
func Parse(raw string) (any, error) {
	raw = strings.TrimSpace(raw)

	candidate := extractFenced(raw)
	if candidate == "" {
		candidate = extractBalanced(raw)
	}
	if candidate == "" {
		if m := greedyRe.FindString(raw); m != "" {
			candidate = m
		}
	}
	if candidate == "" {
		return nil, &ParseError{}
	}

	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err == nil {
		return v, nil
	}

	repaired := Repair(candidate)
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		reportRepair("failed")
		return nil, &ParseError{Original: candidate, Repaired: repaired, Err: err}
	}
	reportRepair("repaired")
	return v, nil
}

// ParseObject is Parse restricted to a JSON object result. The returned
// Object has already been through the Coerce pass.
func ParseObject(raw string) (Object, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := Coerce(v).(map[string]any)
	if !ok {
		return nil, &ParseError{Original: raw, Err: fmt.Errorf("expected object, got %T", v)}
	}
	return Object(obj), nil
}

// ParseArray is Parse restricted to a JSON array of objects. A single bare
// object is wrapped as a one-element array; non-object elements are dropped.
// Every element has been through the Coerce pass.
func ParseArray(raw string) ([]Object, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	v = Coerce(v)

	var elems []any
	switch t := v.(type) {
	case []any:
		elems = t
	case map[string]any:
		elems = []any{t}
	default:
		return nil, nil
	}

	var out []Object
	for _, el := range elems {
		if obj, ok := el.(map[string]any); ok {
			out = append(out, Object(obj))
		}
	}
	return out, nil
}

// extractFenced returns the JSON payload of the first markdown code fence,
// or "" if none is present.
func extractFenced(raw string) string {
	m := fencedRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

// bracket-scanner states.
const (
	scanValue = iota
	scanString
	scanEscape
)

// extractBalanced scans for the first opening brace or bracket and returns
// the substring up to its balanced close, or "" if the structure never
// closes. String literals are tracked so brackets inside quoted text do not
// affect nesting depth.
func extractBalanced(raw string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' {
			start, open, close = i, '{', '}'
			break
		}
		if raw[i] == '[' {
			start, open, close = i, '[', ']'
			break
		}
	}
	if start < 0 {
		return ""
	}

	depth := 0
	state := scanValue
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch state {
		case scanString:
			switch c {
			case '\\':
				state = scanEscape
			case '"':
				state = scanValue
			}
		case scanEscape:
			state = scanString
		default:
			switch c {
			case '"':
				state = scanString
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}
	return ""
}

var (
	lineCommentRe  = regexp.MustCompile(`(?m)//.*$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	keyLineRe      = regexp.MustCompile(`^\s*"([^"]+)"\s*:`)

	missingCommaStrRe = regexp.MustCompile(`"\s*\n\s*"`)
	missingCommaObjRe = regexp.MustCompile(`}\s*\n\s*"`)
	missingCommaArrRe = regexp.MustCompile(`]\s*\n\s*"`)
	trailingCommaRe   = regexp.MustCompile(`,(\s*[}\]])`)
)

// Repair applies best-effort fixes for the malformations models produce most
// often: comments, duplicate object keys, missing commas at line boundaries,
// and trailing commas. The result is not guaranteed to be valid JSON; the
// caller re-parses and reports failure through ParseError.
func Repair(s string) string {
	s = lineCommentRe.ReplaceAllString(s, "")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = dropDuplicateKeys(s)
	s = missingCommaStrRe.ReplaceAllString(s, "\",\n  \"")
	s = missingCommaObjRe.ReplaceAllString(s, "},\n  \"")
	s = missingCommaArrRe.ReplaceAllString(s, "],\n  \"")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return s
}

// dropDuplicateKeys removes lines that redefine an already-seen object key,
// keeping only the last occurrence of each key. The scan is line-based and
// deliberately naive: it matches the `"key":` pattern at line start, which is
// how models format the duplicate-key outputs seen in practice.
func dropDuplicateKeys(s string) string {
	lines := strings.Split(s, "\n")

	last := make(map[string]int)
	for i, line := range lines {
		if m := keyLineRe.FindStringSubmatch(line); m != nil {
			last[m[1]] = i
		}
	}

	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if m := keyLineRe.FindStringSubmatch(line); m != nil && last[m[1]] != i {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// ParseLines splits a plain-text model response into cleaned list items,
// stripping bullet markers, numbering, and comment lines.
func ParseLines(raw string) []string {
	var items []string
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		clean := strings.TrimLeft(line, " \t-*0123456789.)")
		clean = strings.TrimSpace(clean)
		if clean == "" || strings.HasPrefix(clean, "#") {
			continue
		}
		items = append(items, clean)
	}
	return items
}
