package similarity

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
)

// Mode selects how two strings are compared
type Mode string

const (
	// ModeRatio compares the strings as-is
	ModeRatio Mode = "ratio"
	// ModePartial scores the best-aligned window of the longer string
	ModePartial Mode = "partial"
	// ModeSortRatio sorts tokens before comparing
	ModeSortRatio Mode = "sort"
	// ModeSetRatio deduplicates and intersects tokens before comparing
	ModeSetRatio Mode = "set"
)

// Score compares a and b with the given mode and returns 0-100
func Score(mode Mode, a, b string) int {
	switch mode {
	case ModePartial:
		return PartialRatio(a, b)
	case ModeSortRatio:
		return TokenSortRatio(a, b)
	case ModeSetRatio:
		return TokenSetRatio(a, b)
	default:
		return Ratio(a, b)
	}
}

// Ratio is the normalized indel similarity of a and b:
// 100 * 2*LCS / (len(a)+len(b)), rounded.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	lcs := edlib.LCS(a, b)
	return int(math.Round(100 * float64(2*lcs) / float64(la+lb)))
}

// PartialRatio scores the shorter string against every same-length window of
// the longer one (and the partial windows at both ends) and keeps the best.
// A window whose shared rune counts cannot beat the best score so far skips
// the LCS.
func PartialRatio(a, b string) int {
	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
		a, b = b, a
	}
	if len(shorter) == 0 {
		if len(longer) == 0 {
			return 100
		}
		return 0
	}
	if strings.Contains(b, a) {
		return 100
	}

	ls, ll := len(shorter), len(longer)
	need := make(map[rune]int, ls)
	for _, r := range shorter {
		need[r]++
	}
	have := make(map[rune]int, ls)
	shared := 0
	add := func(r rune) {
		have[r]++
		if have[r] <= need[r] {
			shared++
		}
	}
	remove := func(r rune) {
		if have[r] <= need[r] {
			shared--
		}
		have[r]--
	}

	best := 0
	for i := 0; i < ls; i++ {
		add(longer[i])
	}
	for i := 0; i+ls <= ll; i++ {
		if i > 0 {
			remove(longer[i-1])
			add(longer[i+ls-1])
		}
		if ratioCeiling(shared, ls+ls) <= best {
			continue
		}
		if r := Ratio(a, string(longer[i:i+ls])); r > best {
			best = r
			if best == 100 {
				return best
			}
		}
	}

	// edge windows of length k share at most k runes, so the ceiling only
	// falls as k shrinks
	for k := ls - 1; k >= 1; k-- {
		if ratioCeiling(k, ls+k) <= best {
			break
		}
		if r := Ratio(a, string(longer[:k])); r > best {
			best = r
		}
		if r := Ratio(a, string(longer[ll-k:])); r > best {
			best = r
		}
	}
	return best
}

// ratioCeiling is the Ratio reached when the LCS has the given length
func ratioCeiling(lcs, total int) int {
	return int(math.Round(100 * float64(2*lcs) / float64(total)))
}

// TokenSortRatio compares the strings after sorting their tokens, so word
// order does not matter.
func TokenSortRatio(a, b string) int {
	ta, tb := tokenize(a), tokenize(b)
	sort.Strings(ta)
	sort.Strings(tb)
	return Ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// TokenSetRatio compares the shared tokens of a and b against each side's
// full token set. A string whose tokens are a subset of the other's scores 100.
func TokenSetRatio(a, b string) int {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		if len(setA) == 0 && len(setB) == 0 {
			return 100
		}
		return 0
	}

	var intersection, onlyA, onlyB []string
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection = append(intersection, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range setB {
		if _, ok := setA[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}
	sort.Strings(intersection)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	sect := strings.Join(intersection, " ")
	if sect != "" && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	combinedA := strings.TrimSpace(sect + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(sect + " " + strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if sect != "" {
		best = max(best, Ratio(sect, combinedA), Ratio(sect, combinedB))
	}
	return best
}

// tokenize lowercases s, treats every non-alphanumeric rune as a separator
// and splits on whitespace.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsNumber(r)
	})
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}
