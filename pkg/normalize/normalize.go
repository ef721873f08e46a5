// Package normalize canonicalizes entity names so that filter matching
// and deduplication treat spelling variants of the same entity as equal.
//
// The strategies are intentionally simple: punctuation and whitespace
// normalization, case folding, common-suffix merging, and per-word
// singular/plural normalization. Acronym expansion is out of scope;
// "IGV" and "Inlet Guide Vane" stay distinct.
package normalize

import (
	"regexp"
	"strings"
)

var (
	hyphens    = regexp.MustCompile(`-+`)
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Suffixes that name the same entity with or without a generic tail,
// e.g. "lube oil system" and "lube oil".
var mergeSuffixes = []string{" system", " component", " unit", " assembly", " module"}

// Fold lower-cases and trims a value for case-insensitive comparison.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EntityName applies all normalization strategies and returns the
// canonical form used for name comparison. Idempotent.
func EntityName(name string) string {
	if name == "" {
		return ""
	}
	s := Punctuation(name)
	s = Whitespace(s)
	s = strings.ToLower(s)
	s = MergeSuffix(s)

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = Singular(w)
	}
	return strings.TrimSpace(strings.Join(words, " "))
}

// Punctuation replaces hyphens with spaces and strips remaining
// punctuation.
func Punctuation(name string) string {
	name = hyphens.ReplaceAllString(name, " ")
	return nonAlnum.ReplaceAllString(name, "")
}

// Whitespace collapses runs of whitespace to single spaces.
func Whitespace(name string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
}

// MergeSuffix strips a generic trailing word such as " system" so the
// suffixed and bare forms of a name compare equal.
func MergeSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range mergeSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(name[:len(name)-len(suffix)])
		}
	}
	return name
}

// Singular normalizes common English plural endings. Longer patterns
// are checked first to avoid over-stripping ("glasses" before "-es").
func Singular(word string) string {
	lower := strings.ToLower(word)
	switch {
	case len(word) <= 2:
		return word
	case strings.HasSuffix(lower, "sses"): // glasses -> glass
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "ies") && len(word) > 3: // batteries -> battery
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(lower, "ches"), // matches -> match
		strings.HasSuffix(lower, "shes"), // brushes -> brush
		strings.HasSuffix(lower, "xes"),  // boxes -> box
		strings.HasSuffix(lower, "zes"),  // buzzes -> buzz
		strings.HasSuffix(lower, "oes"): // tomatoes -> tomato
		return word[:len(word)-2]
	case strings.HasSuffix(lower, "us"), strings.HasSuffix(lower, "ss"):
		return word // cactus, glass
	case strings.HasSuffix(lower, "es"): // valves -> valve... handled below by "s"
		return word[:len(word)-1]
	case strings.HasSuffix(lower, "s"): // bearings -> bearing
		return word[:len(word)-1]
	}
	return word
}

// Slug converts a display name into a filesystem- and URL-safe
// identifier fragment.
func Slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	var b strings.Builder
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteRune(c)
		}
	}
	out := b.String()
	if len(out) > 20 {
		out = out[:20]
	}
	return out
}
