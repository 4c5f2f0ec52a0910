package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// listFields is the fixed set of field names known to be semantically
// list-valued. Models inconsistently return either a scalar string or a list
// for these; Coerce makes them always lists.
var listFields = map[string]bool{
	"foreshadowing":          true,
	"callbacks":              true,
	"characters_present":     true,
	"key_dialogue":           true,
	"plot_events":            true,
	"character_developments": true,
	"relationship_dynamics":  true,
	"emotional_tone":         true,
	"themes":                 true,
	"aliases":                true,
	"personality_traits":     true,
	"skills_abilities":       true,
	"goals_motivations":      true,
	"fears_weaknesses":       true,
	"important_quotes":       true,
	"key_scenes":             true,
	"episode_appearances":    true,
}

var listDelimRe = regexp.MustCompile(`[,;|]`)

// Coerce applies the type-level fixes every parsed model response needs,
// recursively through nested objects and arrays:
//
//   - string values equal to "none"/"null"/"" (case-insensitive) become nil;
//   - for the fixed set of list-valued field names, a scalar string is split
//     on ","/";"/"|" into a list (or wrapped as a single-element list), and
//     non-list, non-string values become an empty list;
//   - numeric values in an "age" field are stringified.
//
// The pipeline must not fail a whole episode over a scalar-vs-list mixup, so
// this pass exists instead of strict decoding.
func Coerce(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, val := range t {
			out[key] = coerceField(key, val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, el := range t {
			out[i] = Coerce(el)
		}
		return out
	}
	return v
}

// coerceField applies the per-field rules before recursing.
func coerceField(key string, val any) any {
	if s, ok := val.(string); ok && isNullString(s) {
		return nil
	}

	if listFields[key] {
		switch t := val.(type) {
		case string:
			return splitList(t)
		case []any:
			return Coerce(t)
		default:
			return []any{}
		}
	}

	if key == "age" {
		if n, ok := val.(float64); ok {
			return formatAge(n)
		}
	}

	return Coerce(val)
}

// isNullString reports whether s is one of the model's spellings of "no
// value".
func isNullString(s string) bool {
	switch strings.ToLower(s) {
	case "none", "null", "":
		return true
	}
	return false
}

// splitList turns a scalar string into a list, splitting on the common
// delimiters when present and wrapping otherwise.
func splitList(s string) []any {
	if !listDelimRe.MatchString(s) {
		if s == "" {
			return []any{}
		}
		return []any{s}
	}
	var out []any
	for _, part := range listDelimRe.Split(s, -1) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// formatAge stringifies a numeric age, dropping the fraction for whole
// numbers.
func formatAge(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Object is a coerced JSON object consumed through defined-default readers.
// Every consumer must substitute a default for every field it reads; no
// reader assumes presence or panics on a wrong type.
type Object map[string]any

// String returns the string at key, or def if absent or not a string.
func (o Object) String(key, def string) string {
	if s, ok := o[key].(string); ok {
		return s
	}
	return def
}

// Float returns the number at key, or def if absent or not a number.
func (o Object) Float(key string, def float64) float64 {
	if f, ok := o[key].(float64); ok {
		return f
	}
	return def
}

// StringList returns the strings at key. Absent, null, or wrongly typed
// values yield nil; non-string elements are dropped.
func (o Object) StringList(key string) []string {
	list, ok := o[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, el := range list {
		if s, ok := el.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Object returns the nested object at key, or nil if absent or not an
// object. A nil Object is safe to read from.
func (o Object) Object(key string) Object {
	if m, ok := o[key].(map[string]any); ok {
		return Object(m)
	}
	return nil
}
