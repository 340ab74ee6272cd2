package store

import "strings"

const (
	keywordSeparator = ','
	keywordEscape    = '\\'
)

// EncodeKeywords joins keywords with commas. Commas and backslashes inside a
// keyword are escaped with a backslash so the list survives a round trip.
func EncodeKeywords(keywords []string) string {
	var sb strings.Builder
	for i, k := range keywords {
		if i > 0 {
			sb.WriteRune(keywordSeparator)
		}
		for _, r := range k {
			if r == keywordSeparator || r == keywordEscape {
				sb.WriteRune(keywordEscape)
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// DecodeKeywords reverses EncodeKeywords. Rows written as a plain comma join
// decode the same way a naive split would. Tokens are returned untrimmed; an
// empty string yields no keywords.
func DecodeKeywords(raw string) []string {
	if raw == "" {
		return nil
	}

	var (
		out     []string
		current strings.Builder
		escaped bool
	)
	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == keywordEscape:
			escaped = true
		case r == keywordSeparator:
			out = append(out, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		// Dangling escape at the end of a legacy row.
		current.WriteRune(keywordEscape)
	}
	return append(out, current.String())
}
