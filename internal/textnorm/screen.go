package textnorm

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Reason codes recorded for titles rejected before any lookup
const (
	ReasonNotAString = "not_a_string"
	ReasonURL        = "url"
	ReasonPageNumber = "page_number"
	ReasonNotFound   = "lccn not found"
)

var (
	urlPattern  = regexp.MustCompile(`(?i)https?://|www\.`)
	pagePattern = regexp.MustCompile(`(?i)^(.*?)(?:\s*\bp\.\s*\d+(-\d+)?\b.*)$`)
)

// RejectionError reports a title that cannot be resolved
type RejectionError struct {
	Title  string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("title rejected (%s): %q", e.Reason, e.Title)
}

// Screen cleans a raw title and rejects the ones that are not resolvable.
// A trailing page reference ("My Life, p. 44-45") is stripped; a title that is
// only a page reference, contains a URL, or is empty/invalid UTF-8 is rejected.
func Screen(title string) (string, error) {
	if !utf8.ValidString(title) {
		return "", &RejectionError{Title: title, Reason: ReasonNotAString}
	}
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", &RejectionError{Title: title, Reason: ReasonNotAString}
	}
	if urlPattern.MatchString(trimmed) {
		return "", &RejectionError{Title: title, Reason: ReasonURL}
	}
	if m := pagePattern.FindStringSubmatch(trimmed); m != nil {
		cleaned := strings.TrimRight(strings.TrimSpace(m[1]), " \t,;:")
		if cleaned == "" {
			return "", &RejectionError{Title: title, Reason: ReasonPageNumber}
		}
		return cleaned, nil
	}
	return trimmed, nil
}
