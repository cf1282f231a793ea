package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StringList is an identifier field that external JSON sends as absent, a
// bare value or a list. It always decodes to a list of trimmed, non-empty strings.
type StringList []string

// UnmarshalJSON accepts null, a string, a number or an array of those
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var raw any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode identifier list: %w", err)
	}

	var out StringList
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
	default:
		if s, ok := scalarString(v); ok {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

func scalarString(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
