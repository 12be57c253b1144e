package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionSet_Add(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"distinct", []string{"👍", "👎"}, []string{"👍", "👎"}},
		{"duplicate_moves_to_end", []string{"a", "b", "a"}, []string{"b", "a"}},
		{"repeated_last", []string{"a", "b", "b"}, []string{"a", "b"}},
		{"custom", []string{"<:yes:1>", "👍", "<:yes:1>"}, []string{"👍", "<:yes:1>"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewOptionSet(tt.in...)
			assert.Equal(t, tt.want, s.Tokens())
			assert.Equal(t, len(tt.want), s.Len())
			for _, tok := range tt.want {
				assert.True(t, s.Contains(tok))
			}
		})
	}
}

func TestOptionSet_TokensIsCopy(t *testing.T) {
	t.Parallel()

	s := NewOptionSet("a", "b")
	toks := s.Tokens()
	toks[0] = "z"
	assert.Equal(t, []string{"a", "b"}, s.Tokens())
}

func TestParseLegacyValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusFrozen, ParseStatus("freezed"))
	assert.Equal(t, StatusFrozen, ParseStatus("frozen"))
	assert.Equal(t, StatusActive, ParseStatus("active"))
	assert.Equal(t, StatusActive, ParseStatus(""))

	assert.Equal(t, KindStandalone, ParseKind("user"))
	assert.Equal(t, KindStandalone, ParseKind(""))
	assert.Equal(t, KindAttached, ParseKind("attached"))
}
