package app

import (
	"strings"
	"testing"
	"unicode"
)

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		s    string
		want []string
	}{
		{"basic", "create Q 1 👍", []string{"create", "Q", "1", "👍"}},
		{"quoted", `create "Pizza tonight?" 0 👍 👎`, []string{"create", "Pizza tonight?", "0", "👍", "👎"}},
		{"custom_emoji", "attach <#12> 34 0 <:yes:42>", []string{"attach", "<#12>", "34", "0", "<:yes:42>"}},
		{"extra_spaces", "  delete   #1  ", []string{"delete", "#1"}},
		{"empty_quotes", `create "" 1`, []string{"create", "", "1"}},
		{"unterminated", `create "open ended`, []string{"create", "open ended"}},
		{"empty", "   ", nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitArgs(tt.s)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got=%d want=%d, got=%q", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("idx=%d got=%q want=%q (got=%q)", i, got[i], tt.want[i], got)
				}
			}
		})
	}
}

func TestChannelID(t *testing.T) {
	t.Parallel()

	if got := channelID("<#123>"); got != "123" {
		t.Fatalf("mention: got %q", got)
	}
	if got := channelID("456"); got != "456" {
		t.Fatalf("bare: got %q", got)
	}
}

func FuzzSplitArgs(f *testing.F) {
	seeds := []string{
		`create "Q" 1 👍`,
		`a  b`,
		`"unterminated`,
		`<:yes:42> <#1> #2`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, s string) {
		got := splitArgs(s)

		// Unquoted input never produces empty or whitespace-bearing words.
		if strings.ContainsRune(s, '"') {
			return
		}
		for _, p := range got {
			if p == "" {
				t.Fatalf("empty word in %q", got)
			}
			if strings.IndexFunc(p, unicode.IsSpace) >= 0 {
				t.Fatalf("word with space: %q", p)
			}
		}
		if want := strings.Fields(s); len(want) != len(got) {
			t.Fatalf("got %d words, strings.Fields gives %d", len(got), len(want))
		}
	})
}
