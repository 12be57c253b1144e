package app

import (
	"strings"
	"unicode"
)

// splitArgs splits on whitespace and keeps double-quoted runs together,
// so `create "Pizza tonight?" 1 👍` yields a three-word question as one
// argument. An unterminated quote runs to the end of the input.
func splitArgs(s string) []string {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		hasWord bool
	)
	flush := func() {
		if hasWord {
			out = append(out, cur.String())
		}
		cur.Reset()
		hasWord = false
	}

	for _, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
			hasWord = true
		case unicode.IsSpace(r) && !quoted:
			flush()
		default:
			cur.WriteRune(r)
			hasWord = true
		}
	}
	flush()
	return out
}

// channelID accepts a channel mention (<#123>) or a bare id.
func channelID(s string) string {
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		return s[2 : len(s)-1]
	}
	return s
}
