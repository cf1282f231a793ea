package models

// Source names the catalog that produced a persisted resolution
type Source string

const (
	SourceLOC         Source = "LOC"
	SourceOpenLibrary Source = "OpenLibrary"
	SourceNone        Source = "None"
)

// ParseSource maps a stored source cell back to a Source. Unknown or empty
// values read as SourceNone.
func ParseSource(s string) Source {
	switch Source(s) {
	case SourceLOC:
		return SourceLOC
	case SourceOpenLibrary:
		return SourceOpenLibrary
	default:
		return SourceNone
	}
}

// Origin identifies which lookup path produced a MatchCandidate
type Origin string

const (
	OriginRemote   Origin = "Remote"
	OriginBulkDump Origin = "BulkDump"
)

// Source converts a candidate origin into the source recorded on a resolution
func (o Origin) Source() Source {
	switch o {
	case OriginRemote:
		return SourceLOC
	case OriginBulkDump:
		return SourceOpenLibrary
	default:
		return SourceNone
	}
}

// NoMatchMarker is written to the No_match column when no source produced an identifier
const NoMatchMarker = "No match"

// MatchCandidate is one catalog record considered as a possible answer for a title
type MatchCandidate struct {
	SourceTitle string   `json:"source_title"`
	LCCN        []string `json:"lccn"`
	OCLC        []string `json:"oclc"`
	Score       int      `json:"score"` // 0-100
	Origin      Origin   `json:"origin"`
}

// HasIdentifier reports whether the candidate carries at least one LCCN or OCLC number
func (c MatchCandidate) HasIdentifier() bool {
	return len(c.LCCN) > 0 || len(c.OCLC) > 0
}

// ResolutionRecord is the persisted outcome for one title
type ResolutionRecord struct {
	Title   string   `json:"title" parquet:"title"`
	LCCN    string   `json:"lccn" parquet:"lccn"`
	AltLCCN []string `json:"alt_lccn" parquet:"alt_lccn,list"`
	OCLC    string   `json:"oclc" parquet:"oclc"`
	AltOCLC []string `json:"alt_oclc" parquet:"alt_oclc,list"`
	Source  Source   `json:"source" parquet:"source"`
	NoMatch string   `json:"no_match,omitempty" parquet:"no_match"`
}

// IsNoMatch reports whether the record carries an explicit no-match marker
func (r ResolutionRecord) IsNoMatch() bool {
	return r.NoMatch != ""
}

// Identifiers returns the primary and alternate identifiers as candidate lists
func (r ResolutionRecord) Identifiers() (lccn, oclc []string) {
	if r.LCCN != "" {
		lccn = append(lccn, r.LCCN)
	}
	lccn = append(lccn, r.AltLCCN...)
	if r.OCLC != "" {
		oclc = append(oclc, r.OCLC)
	}
	oclc = append(oclc, r.AltOCLC...)
	return lccn, oclc
}
