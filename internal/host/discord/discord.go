// Package discord implements host.Host on a discordgo session.
package discord

import (
	"context"
	"net/http"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

// reactionPageSize is the largest page the reactions endpoint returns.
const reactionPageSize = 100

type Host struct {
	s *discordgo.Session

	// raw keeps the last full message seen per id so CacheMessage can
	// put an unabridged message into the session state.
	raw *lru.Cache[string, *discordgo.Message]
}

var _ host.Host = (*Host)(nil)

// New wraps s. The session state does not track reactions, so New
// registers handlers that apply reaction events to state-cached messages.
func New(s *discordgo.Session, rawCacheSize int) (*Host, error) {
	if rawCacheSize <= 0 {
		rawCacheSize = 1000
	}
	raw, err := lru.New[string, *discordgo.Message](rawCacheSize)
	if err != nil {
		return nil, err
	}
	h := &Host{s: s, raw: raw}
	s.AddHandler(h.onReactionAdd)
	s.AddHandler(h.onReactionRemove)
	s.AddHandler(h.onReactionRemoveAll)
	return h, nil
}

func (h *Host) BotUserID() string {
	h.s.State.RLock()
	defer h.s.State.RUnlock()
	if h.s.State.User == nil {
		return ""
	}
	return h.s.State.User.ID
}

func (h *Host) CustomEmojis(context.Context) ([]host.Emoji, error) {
	h.s.State.RLock()
	defer h.s.State.RUnlock()

	var out []host.Emoji
	for _, g := range h.s.State.Guilds {
		for _, e := range g.Emojis {
			out = append(out, Emoji(e))
		}
	}
	return out, nil
}

func (h *Host) SendText(ctx context.Context, channelID, text string) error {
	_, err := h.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return err
}

func (h *Host) SendDisplay(ctx context.Context, channelID string, d host.Display) (*host.Message, error) {
	m, err := h.s.ChannelMessageSendEmbed(channelID, embed(d), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return h.remember(m), nil
}

func (h *Host) EditContent(ctx context.Context, channelID, messageID, content string) (*host.Message, error) {
	m, err := h.s.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return h.remember(m), nil
}

func (h *Host) EditDisplay(ctx context.Context, channelID, messageID string, d host.Display) (*host.Message, error) {
	m, err := h.s.ChannelMessageEditEmbed(channelID, messageID, embed(d), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return h.remember(m), nil
}

func (h *Host) AddReaction(ctx context.Context, channelID, messageID string, e host.Emoji) error {
	return h.s.MessageReactionAdd(channelID, messageID, e.APIName(), discordgo.WithContext(ctx))
}

func (h *Host) RemoveReaction(ctx context.Context, channelID, messageID string, e host.Emoji, userID string) error {
	return h.s.MessageReactionRemove(channelID, messageID, e.APIName(), userID, discordgo.WithContext(ctx))
}

func (h *Host) ClearReactions(ctx context.Context, channelID, messageID string) error {
	return h.s.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx))
}

// ReactionUsers pages through every user who reacted with e.
func (h *Host) ReactionUsers(ctx context.Context, channelID, messageID string, e host.Emoji) ([]string, error) {
	var (
		out   []string
		after string
	)
	for {
		users, err := h.s.MessageReactions(channelID, messageID, e.APIName(), reactionPageSize, "", after, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			out = append(out, u.ID)
		}
		if len(users) < reactionPageSize {
			return out, nil
		}
		after = users[len(users)-1].ID
	}
}

func (h *Host) FetchMessage(ctx context.Context, channelID, messageID string) (*host.Message, error) {
	m, err := h.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil {
			switch restErr.Response.StatusCode {
			case http.StatusNotFound, http.StatusForbidden:
				return nil, errors.Wrapf(host.ErrNotFound, "message %s: %v", messageID, err)
			}
		}
		return nil, err
	}
	return h.remember(m), nil
}

func (h *Host) CachedMessage(channelID, messageID string) (*host.Message, bool) {
	m, err := h.s.State.Message(channelID, messageID)
	if err != nil {
		return nil, false
	}
	h.s.State.RLock()
	defer h.s.State.RUnlock()
	return Message(m), true
}

// CacheMessage replaces the state entry for m. State.MessageAdd merges
// into an existing entry without its reactions, so the old entry is
// removed first.
func (h *Host) CacheMessage(m *host.Message) {
	raw := &discordgo.Message{}
	if prev, ok := h.raw.Get(m.ID); ok {
		cp := *prev
		raw = &cp
	}
	raw.ID = m.ID
	raw.ChannelID = m.ChannelID
	raw.Content = m.Content
	if raw.Author == nil || raw.Author.ID != m.AuthorID {
		raw.Author = &discordgo.User{ID: m.AuthorID}
	}
	if m.Display != nil {
		embeds := []*discordgo.MessageEmbed{embed(*m.Display)}
		if len(raw.Embeds) > 1 {
			embeds = append(embeds, raw.Embeds[1:]...)
		}
		raw.Embeds = embeds
	}
	raw.Reactions = make([]*discordgo.MessageReactions, 0, len(m.Reactions))
	for _, r := range m.Reactions {
		raw.Reactions = append(raw.Reactions, &discordgo.MessageReactions{
			Emoji: rawEmoji(r.Emoji),
			Count: r.Count,
			Me:    r.Me,
		})
	}

	_ = h.s.State.MessageRemove(raw)
	if err := h.s.State.MessageAdd(raw); err != nil {
		log.Debug().Err(err).Str("message", m.ID).Msg("state message add")
	}
}

// ---------- reaction tracking ----------

func (h *Host) onReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	h.applyReaction(r.MessageReaction, 1)
}

func (h *Host) onReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	h.applyReaction(r.MessageReaction, -1)
}

func (h *Host) onReactionRemoveAll(_ *discordgo.Session, r *discordgo.MessageReactionRemoveAll) {
	m, err := h.s.State.Message(r.ChannelID, r.MessageID)
	if err != nil {
		return
	}
	h.s.State.Lock()
	defer h.s.State.Unlock()
	m.Reactions = nil
}

// applyReaction adjusts the reaction counts of a state-cached message.
// Messages that are not cached are left for the next fetch.
func (h *Host) applyReaction(r *discordgo.MessageReaction, delta int) {
	if r == nil {
		return
	}
	m, err := h.s.State.Message(r.ChannelID, r.MessageID)
	if err != nil {
		return
	}
	me := r.UserID == h.BotUserID()

	h.s.State.Lock()
	defer h.s.State.Unlock()

	for i, mr := range m.Reactions {
		if mr == nil || mr.Emoji == nil || !sameEmoji(*mr.Emoji, r.Emoji) {
			continue
		}
		mr.Count += delta
		if me {
			mr.Me = delta > 0
		}
		if mr.Count <= 0 {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
		}
		return
	}
	if delta > 0 {
		e := r.Emoji
		m.Reactions = append(m.Reactions, &discordgo.MessageReactions{Emoji: &e, Count: 1, Me: me})
	}
}

func sameEmoji(a, b discordgo.Emoji) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.Name == b.Name
}

func (h *Host) remember(m *discordgo.Message) *host.Message {
	h.raw.Add(m.ID, m)
	return Message(m)
}

// ---------- conversions ----------

func Emoji(e *discordgo.Emoji) host.Emoji {
	if e == nil {
		return host.Emoji{}
	}
	return host.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated}
}

func rawEmoji(e host.Emoji) *discordgo.Emoji {
	return &discordgo.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated}
}

func User(u *discordgo.User) host.User {
	if u == nil {
		return host.User{}
	}
	return host.User{ID: u.ID, Name: u.Username, AvatarURL: u.AvatarURL("")}
}

func Message(m *discordgo.Message) *host.Message {
	out := &host.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
	}
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		e := m.Embeds[0]
		d := &host.Display{Description: e.Description, Color: e.Color}
		if e.Author != nil {
			d.Title = e.Author.Name
		}
		if e.Footer != nil {
			d.Footer = e.Footer.Text
			d.FooterIcon = e.Footer.IconURL
		}
		out.Display = d
	}
	for _, r := range m.Reactions {
		if r == nil {
			continue
		}
		out.Reactions = append(out.Reactions, host.Reaction{Emoji: Emoji(r.Emoji), Count: r.Count, Me: r.Me})
	}
	return out
}

func embed(d host.Display) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Description: d.Description,
		Color:       d.Color,
	}
	if d.Title != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: d.Title}
	}
	if d.Footer != "" || d.FooterIcon != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: d.Footer, IconURL: d.FooterIcon}
	}
	return e
}
