package graph

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Sanitize turns a label into an identifier fragment. It lowercases and trims
// the input, collapses each run of non-word runes into one underscore, strips
// leading underscores, and prefixes an underscore when the result starts with
// a digit. Word runes are letters, numbers and underscore. An empty result is
// replaced by "id_" plus a fresh random hex string, so Sanitize never fails.
func Sanitize(s string) string {
	id, _ := sanitize(s)
	return id
}

// sanitize also reports whether the random fallback was used.
func sanitize(s string) (string, bool) {
	s = strings.TrimSpace(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	inRun := false
	for _, r := range s {
		if isWordRune(r) {
			b.WriteRune(r)
			inRun = false
			continue
		}
		if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}

	out := strings.TrimLeft(b.String(), "_")
	if out == "" {
		return fallbackID(), true
	}
	if first := []rune(out)[0]; unicode.IsDigit(first) {
		out = "_" + out
	}
	return out, false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func fallbackID() string {
	return "id_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
