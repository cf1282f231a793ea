package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const (
	// matchPrefixLen is the number of leading characters always kept by MatchSubstring
	matchPrefixLen = 40

	minTailFraction = 0.6
	maxTailFraction = 1.0
)

// asciiPunctuation mirrors the ASCII punctuation set; several of these are
// Unicode symbols rather than punctuation so unicode.IsPunct alone misses them.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize produces the comparison key for a title: punctuation removed,
// lowercased, whitespace collapsed and trimmed, NFC composed.
// It never fails and Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	space := false
	for _, r := range strings.ToLower(text) {
		switch {
		case isPunctuation(r):
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return norm.NFC.String(b.String())
}

func isPunctuation(r rune) bool {
	if r <= unicode.MaxASCII {
		return strings.ContainsRune(asciiPunctuation, r)
	}
	return unicode.IsPunct(r)
}

// MatchSubstring derives the anchor used for fuzzy comparison of long titles.
// Inputs of up to 40 characters are returned unchanged. Longer inputs keep the
// first 40 characters extended to the end of the current word, followed by a
// length-dependent fraction of the remainder.
func MatchSubstring(normalized string) string {
	runes := []rune(normalized)
	total := len(runes)
	if total <= matchPrefixLen {
		return normalized
	}

	end := matchPrefixLen
	for end < total && isAlnum(runes[end]) {
		end++
	}
	base := runes[:end]
	remaining := runes[end:]

	extra := int(float64(len(remaining)) * TailFraction(total))
	return string(base) + string(remaining[:extra])
}

// TailFraction is the share of the post-prefix remainder kept by
// MatchSubstring for a string of the given length:
// y = length²/150000 − 0.003·length + 1.0333, clamped to [0.6, 1.0].
func TailFraction(length int) float64 {
	x := float64(length)
	y := x*x/150000 - 0.003*x + 1.0333
	if y < minTailFraction {
		return minTailFraction
	}
	if y > maxTailFraction {
		return maxTailFraction
	}
	return y
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r)
}
