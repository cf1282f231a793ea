package storage

import (
	"strings"
)

// FormatList renders a list cell as a bracketed literal: ['12345', '67890'].
// Empty lists render as [].
func FormatList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteItem(v))
	}
	b.WriteByte(']')
	return b.String()
}

// quoteItem single-quotes v unless it contains a single quote and no double
// quote, in which case double quotes need no escaping
func quoteItem(v string) string {
	quote := byte('\'')
	if strings.ContainsRune(v, '\'') && !strings.ContainsRune(v, '"') {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\\' || c == quote {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte(quote)
	return b.String()
}

// ParseList reads a list cell written by FormatList. It also accepts
// double-quoted and bare items, a bare scalar, and the empty markers
// "", "[]", "n/a" and "nan".
func ParseList(cell string) []string {
	cell = strings.TrimSpace(cell)
	if isEmptyCell(cell) || cell == "[]" {
		return nil
	}
	if !strings.HasPrefix(cell, "[") || !strings.HasSuffix(cell, "]") {
		return []string{cell}
	}

	body := cell[1 : len(cell)-1]
	var (
		out     []string
		current strings.Builder
		quote   byte
		quoted  bool
		escaped bool
	)
	flush := func() {
		item := current.String()
		if !quoted {
			item = strings.TrimSpace(item)
		}
		if item != "" {
			out = append(out, item)
		}
		current.Reset()
		quoted = false
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case escaped:
			current.WriteByte(c)
			escaped = false
		case quote != 0 && c == '\\':
			escaped = true
		case quote != 0 && c == quote:
			quote = 0
		case quote != 0:
			current.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			quoted = true
			current.Reset()
		case c == ',':
			flush()
		case quoted:
			// whitespace between a closing quote and the next comma
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return out
}

// isEmptyCell treats the placeholders older files used for missing values
// as empty
func isEmptyCell(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "n/a", "nan", "none":
		return true
	}
	return false
}

func cleanCell(cell string) string {
	if isEmptyCell(cell) {
		return ""
	}
	return strings.TrimSpace(cell)
}
