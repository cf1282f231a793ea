package resolver

import (
	"sort"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
)

// Select builds the resolution for title from accepted candidates. The
// highest-scoring candidate supplies the primary identifiers and the source;
// the remaining identifiers, deduplicated in score order, become alternates
// capped at maxAlternates each. It also returns the winning score.
func Select(title string, candidates []models.MatchCandidate, maxAlternates int) (models.ResolutionRecord, int) {
	record := models.ResolutionRecord{Title: title, Source: models.SourceNone}
	if len(candidates) == 0 {
		return record, 0
	}

	ranked, lccns, oclcs := rankIdentifiers(candidates)
	record.Source = ranked[0].Origin.Source()
	record.LCCN, record.AltLCCN = primaryAndAlternates(lccns, maxAlternates)
	record.OCLC, record.AltOCLC = primaryAndAlternates(oclcs, maxAlternates)
	return record, ranked[0].Score
}

// rankIdentifiers orders candidates by descending score, ties keeping their
// original order, and flattens their identifiers in that order
func rankIdentifiers(candidates []models.MatchCandidate) (ranked []models.MatchCandidate, lccns, oclcs []string) {
	ranked = make([]models.MatchCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for _, c := range ranked {
		lccns = appendUnique(lccns, c.LCCN...)
		oclcs = appendUnique(oclcs, c.OCLC...)
	}
	return ranked, lccns, oclcs
}

func primaryAndAlternates(values []string, maxAlternates int) (string, []string) {
	if len(values) == 0 {
		return "", nil
	}
	alternates := values[1:]
	if len(alternates) > maxAlternates {
		alternates = alternates[:maxAlternates]
	}
	if len(alternates) == 0 {
		return values[0], nil
	}
	return values[0], append([]string(nil), alternates...)
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
