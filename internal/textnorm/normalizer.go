// Package textnorm pre-processes text to defeat Unicode evasion before
// cache-key hashing and classification, and provides a log-safe
// truncation helper. Grounded on the teacher's internal/normalizer
// package, kept largely as-is: the homoglyph/leetspeak defeating is a
// generally useful anti-evasion feature for a crisis-text classifier,
// not something specific to the teacher's toxicity-moderation domain.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer applies Unicode and substitution normalization.
type Normalizer struct {
	homoglyphs map[rune]rune
	leetspeak  map[rune]rune
}

// New creates a Normalizer with default homoglyph and leetspeak mappings.
func New() *Normalizer {
	return &Normalizer{
		homoglyphs: defaultHomoglyphs(),
		leetspeak:  defaultLeetspeak(),
	}
}

// Normalize applies, in order: NFKC Unicode normalization, zero-width
// character stripping, homoglyph-to-Latin mapping, leetspeak decoding,
// and whitespace collapsing (spec §4.12).
func (n *Normalizer) Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = stripZeroWidth(text)
	text = n.mapRunes(text, n.homoglyphs)
	text = n.mapRunes(text, n.leetspeak)
	text = collapseWhitespace(text)
	return text
}

// stripZeroWidth removes zero-width Unicode characters used to evade
// filters.
func stripZeroWidth(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch r {
		case '\u200B', // zero-width space
			'\u200C', // zero-width non-joiner
			'\u200D', // zero-width joiner
			'\u200E', // left-to-right mark
			'\u200F', // right-to-left mark
			'\u2060', // word joiner
			'\uFEFF': // byte order mark / zero-width no-break space
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (n *Normalizer) mapRunes(text string, mapping map[rune]rune) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if replacement, ok := mapping[r]; ok {
			b.WriteRune(replacement)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteRune(' ')
				inSpace = true
			}
		} else {
			b.WriteRune(r)
			inSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Truncate shortens text to at most maxRunes runes for safe inclusion in
// logs, appending an ellipsis marker if it cut anything. It must never be
// applied before classification — only for the ambient logging path.
func Truncate(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}
