package polls

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

func TestSubstituteTally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		votes   int
		want    string
	}{
		{"colon", "Total votes: 3", 5, "Total votes: 5"},
		{"no_colon", "votes 3", 4, "votes 4"},
		{"case_insensitive", "VOTES: 1 and Replies: 2", 7, "VOTES: 7 and Replies: 7"},
		{"negative", "votes: -2", 0, "votes: 0"},
		{"no_label", "nothing to count", 3, "nothing to count"},
		{"label_without_number", "votes: soon", 3, "votes: soon"},
		{"multi_digit", "replies: 120 total", 121, "replies: 121 total"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, substituteTally(tt.content, tt.votes))
		})
	}
}

func TestValidateOption(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"👍", "1️⃣", "🇺🇦", "👩‍👩‍👧", "<:yes:42>", "<a:party:7>", "x"} {
		assert.NoError(t, validateOption(ok), ok)
	}
	for _, bad := range []string{"", "👍👎", "hello", " 👍", "<:yes:>"} {
		assert.True(t, errors.Is(validateOption(bad), ErrValidation), bad)
	}
}

func TestResolveToken(t *testing.T) {
	t.Parallel()

	custom := []host.Emoji{{ID: "42", Name: "yes"}, {ID: "7", Name: "party", Animated: true}}

	assert.Equal(t, custom[0], resolveToken("<:yes:42>", custom))
	assert.Equal(t, custom[1], resolveToken("<a:party:7>", custom))
	assert.Equal(t, host.Unicode("👍"), resolveToken("👍", custom))
	// unknown custom references still resolve to a reaction the platform may reject
	assert.Equal(t, host.Emoji{ID: "9", Name: "gone"}, resolveToken("<:gone:9>", custom))
}

func TestCanonicalToken(t *testing.T) {
	t.Parallel()

	custom := []host.Emoji{{ID: "7", Name: "party", Animated: true}}

	assert.Equal(t, "<a:party:7>", canonicalToken(host.Emoji{ID: "7", Name: "party"}, custom))
	assert.Equal(t, "<:other:8>", canonicalToken(host.Emoji{ID: "8", Name: "other"}, custom))
	assert.Equal(t, "👍", canonicalToken(host.Unicode("👍"), custom))
}
