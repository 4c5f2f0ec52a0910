// Package namematch canonicalizes character names extracted from transcripts
// against the roster of already-known characters.
//
// Transcript extraction produces noisy names: transcription slips ("Jesse
// Pinkmann"), partial names, and inconsistent casing. An exact key match is
// always preferred and is never overridden; namematch only steps in for names
// that have no exact roster counterpart, using Double Metaphone phonetic
// encoding to find candidates and Jaro-Winkler similarity to rank them.
//
// The matcher is deliberately conservative. A near-miss must either share a
// phonetic code with a roster name and score above the phonetic threshold, or
// score above the stricter fuzzy threshold on pure string similarity.
// Anything below both thresholds is treated as a genuinely new character.
package namematch

import (
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/plotwright/plotwright/internal/model"
)

const (
	defaultPhoneticThreshold = 0.82
	defaultFuzzyThreshold    = 0.90
)

// Option configures a [Matcher].
type Option func(*Matcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched roster name to be accepted. Default: 0.82.
func WithPhoneticThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic candidate exists and the matcher falls back to pure string
// similarity. Default: 0.90.
func WithFuzzyThreshold(threshold float64) Option {
	return func(m *Matcher) {
		m.fuzzyThreshold = threshold
	}
}

// Matcher resolves extracted character names to roster names. It is
// read-only after construction and safe for concurrent use.
type Matcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New returns a Matcher configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Canonicalize resolves name against roster. An exact match by character key
// (case- and whitespace-insensitive) wins unconditionally with confidence 1.
// Otherwise the fuzzy path runs; when nothing clears the thresholds, name is
// returned unchanged with matched false, meaning the caller should treat it
// as a new character.
func (m *Matcher) Canonicalize(name string, roster []string) (canonical string, confidence float64, matched bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(roster) == 0 {
		return name, 0, false
	}

	key := model.CharacterKey(trimmed)
	for _, known := range roster {
		if model.CharacterKey(known) == key {
			return known, 1, true
		}
	}

	return m.fuzzyMatch(trimmed, roster)
}

// fuzzyMatch finds the best near-miss roster name for name, if any.
func (m *Matcher) fuzzyMatch(name string, roster []string) (corrected string, confidence float64, matched bool) {
	nameLower := strings.ToLower(name)
	nameTokens := strings.Fields(nameLower)
	nameCodes := codesForTokens(nameTokens)

	type candidate struct {
		name     string
		score    float64
		phonetic bool
	}

	var best candidate

	for _, known := range roster {
		knownLower := strings.ToLower(strings.TrimSpace(known))
		if knownLower == "" {
			continue
		}
		knownTokens := strings.Fields(knownLower)

		phonetic := codesOverlap(nameCodes, codesForTokens(knownTokens))
		score := bestJWScore(nameTokens, knownTokens, nameLower, knownLower)

		if phonetic {
			if score >= m.phoneticThreshold {
				if !best.phonetic || score > best.score {
					best = candidate{name: known, score: score, phonetic: true}
				}
			}
		} else if !best.phonetic {
			if score >= m.fuzzyThreshold && score > best.score {
				best = candidate{name: known, score: score, phonetic: false}
			}
		}
	}

	if best.name != "" {
		return best.name, best.score, true
	}
	return name, 0, false
}

// codesForTokens returns the union of Double Metaphone codes over tokens.
// Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the roster name across full-string and space-stripped comparisons.
//
// Single-token inputs additionally get a best pairwise token comparison, so a
// first name alone can still resolve to a full roster name. The pairwise
// strategy is restricted to single tokens on purpose: two full names sharing
// a surname must not score as identical.
func bestJWScore(inputTokens, knownTokens []string, inputFull, knownFull string) float64 {
	score := matchr.JaroWinkler(inputFull, knownFull, false)

	if len(inputTokens) > 1 || len(knownTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(knownTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	if len(inputTokens) == 1 {
		for _, kt := range knownTokens {
			if s := matchr.JaroWinkler(inputTokens[0], kt, false); s > score {
				score = s
			}
		}
	}

	return score
}
