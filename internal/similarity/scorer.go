package similarity

// Scorer accepts a pair of strings when any of its modes reaches Threshold.
// The threshold always comes from the caller; call sites differ.
type Scorer struct {
	Threshold int
	Modes     []Mode
}

// NewTitleScorer returns the sort/set scorer used to compare catalog titles
func NewTitleScorer(threshold int) Scorer {
	return Scorer{
		Threshold: threshold,
		Modes:     []Mode{ModeSortRatio, ModeSetRatio},
	}
}

// Match is the outcome of comparing two strings with a Scorer
type Match struct {
	Score    int
	Mode     Mode
	Accepted bool
}

// Compare scores a against b with every configured mode, stopping at the
// first mode that reaches the threshold. The returned score is the best seen.
func (s Scorer) Compare(a, b string) Match {
	modes := s.Modes
	if len(modes) == 0 {
		modes = []Mode{ModeRatio}
	}

	var best Match
	for _, mode := range modes {
		score := Score(mode, a, b)
		if score > best.Score || best.Mode == "" {
			best.Score = score
			best.Mode = mode
		}
		if score >= s.Threshold {
			return Match{Score: score, Mode: mode, Accepted: true}
		}
	}
	return best
}
