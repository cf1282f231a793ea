package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/similarity"
)

// Confirmation is an LCCN whose canonical title matched the input title at
// the confirmation threshold
type Confirmation struct {
	LCCN           string
	CanonicalTitle string
	Score          int
	Mode           similarity.Mode
}

// Confirm fetches the canonical title of each LCCN in order and re-scores it
// against title. The first LCCN that passes is returned; the rest are not
// looked up.
func (r *Resolver) Confirm(ctx context.Context, title string, lccns []string) (*Confirmation, error) {
	if r.fetcher == nil {
		return nil, fmt.Errorf("no title fetcher configured")
	}

	scorer := similarity.NewTitleScorer(r.cfg.ConfirmThreshold)
	for _, lccn := range lccns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		canonical, err := r.fetcher.TitleForLCCN(ctx, lccn)
		if err != nil {
			slog.Warn("Failed to fetch title for LCCN", "lccn", lccn, "err", err)
			continue
		}
		if canonical == "" {
			slog.Debug("No title found for LCCN", "lccn", lccn)
			continue
		}

		match := scorer.Compare(title, canonical)
		if match.Accepted {
			slog.Debug("Confirmed LCCN", "lccn", lccn, "title", canonical, "mode", match.Mode, "score", match.Score)
			return &Confirmation{
				LCCN:           lccn,
				CanonicalTitle: canonical,
				Score:          match.Score,
				Mode:           match.Mode,
			}, nil
		}
		slog.Debug("LCCN title did not match", "lccn", lccn, "title", canonical, "score", match.Score)
	}
	return nil, nil
}

// confirmCandidates narrows remote candidates to the single confirmed LCCN.
// OCLC numbers of the candidate that carried the LCCN are kept.
func (r *Resolver) confirmCandidates(ctx context.Context, title string, candidates []models.MatchCandidate) (models.MatchCandidate, bool) {
	_, lccns, _ := rankIdentifiers(candidates)

	confirmation, err := r.Confirm(ctx, title, lccns)
	if err != nil || confirmation == nil {
		if err != nil {
			slog.Warn("LCCN confirmation failed", "title", title, "err", err)
		}
		return models.MatchCandidate{}, false
	}

	confirmed := models.MatchCandidate{
		SourceTitle: confirmation.CanonicalTitle,
		LCCN:        []string{confirmation.LCCN},
		Score:       confirmation.Score,
		Origin:      models.OriginRemote,
	}
	for _, c := range candidates {
		for _, lccn := range c.LCCN {
			if lccn == confirmation.LCCN {
				confirmed.OCLC = c.OCLC
				return confirmed, true
			}
		}
	}
	return confirmed, true
}
