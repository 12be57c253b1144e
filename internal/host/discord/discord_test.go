package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

func TestMessageConversion(t *testing.T) {
	t.Parallel()

	m := &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "votes: 2",
		Author:    &discordgo.User{ID: "bot"},
		Embeds: []*discordgo.MessageEmbed{{
			Description: "Poll #1, total votes: 2",
			Color:       0xABCDEF,
			Author:      &discordgo.MessageEmbedAuthor{Name: "Pizza?"},
			Footer:      &discordgo.MessageEmbedFooter{Text: "Poll by Alice", IconURL: "icon"},
		}},
		Reactions: []*discordgo.MessageReactions{
			{Count: 3, Me: true, Emoji: &discordgo.Emoji{Name: "👍"}},
			{Count: 1, Emoji: &discordgo.Emoji{ID: "42", Name: "yes"}},
		},
	}

	got := Message(m)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "c1", got.ChannelID)
	assert.Equal(t, "bot", got.AuthorID)
	require.NotNil(t, got.Display)
	assert.Equal(t, host.Display{
		Title:       "Pizza?",
		Description: "Poll #1, total votes: 2",
		Color:       0xABCDEF,
		Footer:      "Poll by Alice",
		FooterIcon:  "icon",
	}, *got.Display)
	assert.Equal(t, []host.Reaction{
		{Emoji: host.Unicode("👍"), Count: 3, Me: true},
		{Emoji: host.Emoji{ID: "42", Name: "yes"}, Count: 1},
	}, got.Reactions)
	assert.Equal(t, 4, got.TotalReactions())
}

func TestMessageConversion_PlainText(t *testing.T) {
	t.Parallel()

	got := Message(&discordgo.Message{ID: "m2", ChannelID: "c1", Content: "hi"})
	assert.Nil(t, got.Display)
	assert.Empty(t, got.AuthorID)
	assert.Empty(t, got.Reactions)
}

func TestEmbedRoundTrip(t *testing.T) {
	t.Parallel()

	d := host.Display{Title: "Q", Description: "Poll #3, total votes: 0", Color: 12, Footer: "Poll by Bob", FooterIcon: "x"}
	got := Message(&discordgo.Message{Embeds: []*discordgo.MessageEmbed{embed(d)}})
	require.NotNil(t, got.Display)
	assert.Equal(t, d, *got.Display)

	bare := embed(host.Display{Description: "only"})
	assert.Nil(t, bare.Author)
	assert.Nil(t, bare.Footer)
}

func TestNilSafeConversions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, host.Emoji{}, Emoji(nil))
	assert.Equal(t, host.User{}, User(nil))
	assert.Equal(t, host.Emoji{ID: "7", Name: "party", Animated: true}, Emoji(&discordgo.Emoji{ID: "7", Name: "party", Animated: true}))
}

func newStateHost(t *testing.T) (*Host, *discordgo.Session) {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	require.NoError(t, err)
	s.State.MaxMessageCount = 50
	s.State.User = &discordgo.User{ID: "bot"}
	require.NoError(t, s.State.GuildAdd(&discordgo.Guild{
		ID:       "g1",
		Channels: []*discordgo.Channel{{ID: "c1", GuildID: "g1"}},
	}))

	h, err := New(s, 10)
	require.NoError(t, err)
	return h, s
}

func reactionOn(messageID, userID string, e discordgo.Emoji) *discordgo.MessageReaction {
	return &discordgo.MessageReaction{UserID: userID, MessageID: messageID, ChannelID: "c1", Emoji: e}
}

func TestStateCache_TracksReactions(t *testing.T) {
	t.Parallel()
	h, s := newStateHost(t)

	require.NoError(t, s.State.OnInterface(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Author:    &discordgo.User{ID: "bot"},
		Embeds:    []*discordgo.MessageEmbed{{Description: "Poll #1, total votes: 0"}},
	}}))

	thumbs := discordgo.Emoji{Name: "👍"}
	yes := discordgo.Emoji{ID: "42", Name: "yes"}
	h.onReactionAdd(s, &discordgo.MessageReactionAdd{MessageReaction: reactionOn("m1", "bot", thumbs)})
	h.onReactionAdd(s, &discordgo.MessageReactionAdd{MessageReaction: reactionOn("m1", "bot", yes)})
	h.onReactionAdd(s, &discordgo.MessageReactionAdd{MessageReaction: reactionOn("m1", "alice", thumbs)})

	got, ok := h.CachedMessage("c1", "m1")
	require.True(t, ok)
	assert.Equal(t, []host.Reaction{
		{Emoji: host.Unicode("👍"), Count: 2, Me: true},
		{Emoji: host.Emoji{ID: "42", Name: "yes"}, Count: 1, Me: true},
	}, got.Reactions)
	assert.Equal(t, 3, got.TotalReactions())

	h.onReactionRemove(s, &discordgo.MessageReactionRemove{MessageReaction: reactionOn("m1", "alice", thumbs)})
	h.onReactionRemove(s, &discordgo.MessageReactionRemove{MessageReaction: reactionOn("m1", "bot", yes)})
	got, ok = h.CachedMessage("c1", "m1")
	require.True(t, ok)
	assert.Equal(t, []host.Reaction{{Emoji: host.Unicode("👍"), Count: 1, Me: true}}, got.Reactions)

	h.onReactionRemoveAll(s, &discordgo.MessageReactionRemoveAll{MessageReaction: reactionOn("m1", "", discordgo.Emoji{})})
	got, ok = h.CachedMessage("c1", "m1")
	require.True(t, ok)
	assert.Zero(t, got.TotalReactions())
}

func TestStateCache_ReactionOnUncachedMessageIgnored(t *testing.T) {
	t.Parallel()
	h, s := newStateHost(t)

	h.onReactionAdd(s, &discordgo.MessageReactionAdd{MessageReaction: reactionOn("nope", "alice", discordgo.Emoji{Name: "👍"})})
	_, ok := h.CachedMessage("c1", "nope")
	assert.False(t, ok)
}

func TestCacheMessage_ReplacesStateEntry(t *testing.T) {
	t.Parallel()
	h, s := newStateHost(t)

	require.NoError(t, s.State.OnInterface(s, &discordgo.MessageCreate{Message: &discordgo.Message{
		ID: "m1", ChannelID: "c1", Author: &discordgo.User{ID: "bot"},
		Embeds: []*discordgo.MessageEmbed{{Description: "Poll #1, total votes: 0"}},
	}}))

	edited := &host.Message{
		ID:        "m1",
		ChannelID: "c1",
		AuthorID:  "bot",
		Display:   &host.Display{Title: "Pizza?", Description: "Poll #1, total votes: 1", Footer: "Poll by Alice"},
		Reactions: []host.Reaction{
			{Emoji: host.Unicode("👍"), Count: 2, Me: true},
			{Emoji: host.Unicode("👎"), Count: 1, Me: true},
		},
	}
	h.CacheMessage(edited)

	got, ok := h.CachedMessage("c1", "m1")
	require.True(t, ok)
	assert.Equal(t, "bot", got.AuthorID)
	require.NotNil(t, got.Display)
	assert.Equal(t, *edited.Display, *got.Display)
	assert.Equal(t, edited.Reactions, got.Reactions)
	assert.Equal(t, 3, got.TotalReactions())
}

func TestCacheMessage_RestoresEvictedMessage(t *testing.T) {
	t.Parallel()
	h, _ := newStateHost(t)

	h.CacheMessage(&host.Message{
		ID:        "m9",
		ChannelID: "c1",
		AuthorID:  "bot",
		Content:   "Lunch? votes: 2",
		Reactions: []host.Reaction{{Emoji: host.Unicode("🍕"), Count: 3, Me: true}},
	})

	got, ok := h.CachedMessage("c1", "m9")
	require.True(t, ok)
	assert.Equal(t, "bot", got.AuthorID)
	assert.Equal(t, "Lunch? votes: 2", got.Content)
	assert.Nil(t, got.Display)
	assert.Equal(t, 3, got.TotalReactions())
}
