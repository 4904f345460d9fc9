// Package similarity implements the near-duplicate detector the Risk
// Engine consults before letting a schedule publish (spec.md §4.B).
package similarity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
)

// DefaultThreshold is θ in spec.md §4.B/§4.D.
const DefaultThreshold = 0.86

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Normalize lowercases s, strips URLs and @/# sigils, folds every
// non-letter/non-digit rune to a space, and keeps only tokens of length
// >= 2, joined by single spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = urlPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if r == '@' || r == '#' {
			return -1
		}
		return r
	}, s)

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 2 {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Fingerprint is the first 24 hex chars of SHA-256(Normalize(s)); used as a
// coarse similarity lookup hint on ContentVariant.SimilarityKey.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])[:24]
}

func tokenSet(normalized string) map[string]struct{} {
	tokens := strings.Fields(normalized)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Similarity is the Jaccard index between the token sets of a and b. An
// empty token set on either side yields 0, never division by zero.
func Similarity(a, b string) float64 {
	setA := tokenSet(Normalize(a))
	setB := tokenSet(Normalize(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// TooSimilar reports whether candidate matches any entry in corpus at or
// above threshold.
func TooSimilar(candidate string, corpus []string, threshold float64) bool {
	for _, existing := range corpus {
		if Similarity(candidate, existing) >= threshold {
			return true
		}
	}
	return false
}
