// Package hosttest provides an in-memory host.Host for tests.
package hosttest

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

type reaction struct {
	emoji host.Emoji
	users []string
}

type message struct {
	msg       host.Message
	reactions []*reaction
}

// Fake is a single-guild platform. Reactions are keyed by APIName and keep
// the order in which they were first added.
type Fake struct {
	BotID  string
	Emojis []host.Emoji

	// StaleCache makes CachedMessage return the message as it was when it
	// was last cached, as a gateway cache that does not track reactions
	// would.
	StaleCache bool

	mu       sync.Mutex
	nextID   int
	messages map[string]*message
	cached   map[string]bool
	copies   map[string]*host.Message

	// Texts collects everything sent with SendText, per channel.
	Texts map[string][]string

	Edits   int
	Fetches int
	Removes int

	AddReactionErr    map[string]error // keyed by emoji token
	RemoveReactionErr error
	FetchErr          error
}

var _ host.Host = (*Fake)(nil)

func New(botID string, emojis ...host.Emoji) *Fake {
	return &Fake{
		BotID:          botID,
		Emojis:         emojis,
		messages:       make(map[string]*message),
		cached:         make(map[string]bool),
		copies:         make(map[string]*host.Message),
		Texts:          make(map[string][]string),
		AddReactionErr: make(map[string]error),
	}
}

// PostText creates a plain message authored by authorID and caches it.
func (f *Fake) PostText(channelID, authorID, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.post(host.Message{ChannelID: channelID, AuthorID: authorID, Content: content})
}

func (f *Fake) post(m host.Message) string {
	f.nextID++
	m.ID = "msg-" + strconv.Itoa(f.nextID)
	f.messages[m.ID] = &message{msg: m}
	f.cached[m.ID] = true
	f.copies[m.ID] = f.snapshot(f.messages[m.ID])
	return m.ID
}

// React adds userID's reaction, as the platform would before emitting a
// reaction-added event.
func (f *Fake) React(messageID, userID string, e host.Emoji) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.react(messageID, userID, e)
}

func (f *Fake) react(messageID, userID string, e host.Emoji) {
	m := f.messages[messageID]
	if m == nil {
		return
	}
	for _, r := range m.reactions {
		if r.emoji.APIName() == e.APIName() {
			for _, u := range r.users {
				if u == userID {
					return
				}
			}
			r.users = append(r.users, userID)
			return
		}
	}
	m.reactions = append(m.reactions, &reaction{emoji: e, users: []string{userID}})
}

// Unreact removes userID's reaction.
func (f *Fake) Unreact(messageID, userID string, e host.Emoji) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreact(messageID, userID, e)
}

func (f *Fake) unreact(messageID, userID string, e host.Emoji) {
	m := f.messages[messageID]
	if m == nil {
		return
	}
	for i, r := range m.reactions {
		if r.emoji.APIName() != e.APIName() {
			continue
		}
		for j, u := range r.users {
			if u == userID {
				r.users = append(r.users[:j], r.users[j+1:]...)
				break
			}
		}
		if len(r.users) == 0 {
			m.reactions = append(m.reactions[:i], m.reactions[i+1:]...)
		}
		return
	}
}

// Evict drops a message from the local cache.
func (f *Fake) Evict(messageID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cached, messageID)
}

func (f *Fake) IsCached(messageID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached[messageID]
}

// ReactionTokens lists the reaction tokens on a message in order.
func (f *Fake) ReactionTokens(messageID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.messages[messageID]
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.reactions))
	for _, r := range m.reactions {
		out = append(out, r.emoji.Token())
	}
	return out
}

// UserReactions counts the reactions userID has on a message.
func (f *Fake) UserReactions(messageID, userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	if m := f.messages[messageID]; m != nil {
		for _, r := range m.reactions {
			for _, u := range r.users {
				if u == userID {
					n++
				}
			}
		}
	}
	return n
}

// Message returns the current state of a message, cached or not.
func (f *Fake) Message(messageID string) *host.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := f.messages[messageID]
	if m == nil {
		return nil
	}
	return f.snapshot(m)
}

func (f *Fake) snapshot(m *message) *host.Message {
	out := m.msg
	if m.msg.Display != nil {
		d := *m.msg.Display
		out.Display = &d
	}
	out.Reactions = make([]host.Reaction, 0, len(m.reactions))
	for _, r := range m.reactions {
		me := false
		for _, u := range r.users {
			if u == f.BotID {
				me = true
			}
		}
		out.Reactions = append(out.Reactions, host.Reaction{Emoji: r.emoji, Count: len(r.users), Me: me})
	}
	return &out
}

func (f *Fake) lookup(channelID, messageID string) (*message, error) {
	m := f.messages[messageID]
	if m == nil || m.msg.ChannelID != channelID {
		return nil, errors.Wrapf(host.ErrNotFound, "message %s", messageID)
	}
	return m, nil
}

// ---------- host.Host ----------

func (f *Fake) BotUserID() string {
	return f.BotID
}

func (f *Fake) CustomEmojis(context.Context) ([]host.Emoji, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]host.Emoji, len(f.Emojis))
	copy(out, f.Emojis)
	return out, nil
}

func (f *Fake) SendText(_ context.Context, channelID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Texts[channelID] = append(f.Texts[channelID], text)
	return nil
}

func (f *Fake) SendDisplay(_ context.Context, channelID string, d host.Display) (*host.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.post(host.Message{ChannelID: channelID, AuthorID: f.BotID, Display: &d})
	return f.snapshot(f.messages[id]), nil
}

func (f *Fake) EditContent(_ context.Context, channelID, messageID, content string) (*host.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return nil, err
	}
	f.Edits++
	m.msg.Content = content
	return f.snapshot(m), nil
}

func (f *Fake) EditDisplay(_ context.Context, channelID, messageID string, d host.Display) (*host.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return nil, err
	}
	f.Edits++
	m.msg.Display = &d
	return f.snapshot(m), nil
}

func (f *Fake) AddReaction(_ context.Context, channelID, messageID string, e host.Emoji) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.AddReactionErr[e.Token()]; err != nil {
		return err
	}
	if _, err := f.lookup(channelID, messageID); err != nil {
		return err
	}
	f.react(messageID, f.BotID, e)
	return nil
}

func (f *Fake) RemoveReaction(_ context.Context, channelID, messageID string, e host.Emoji, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RemoveReactionErr != nil {
		return f.RemoveReactionErr
	}
	if _, err := f.lookup(channelID, messageID); err != nil {
		return err
	}
	f.Removes++
	f.unreact(messageID, userID, e)
	return nil
}

func (f *Fake) ClearReactions(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return err
	}
	m.reactions = nil
	return nil
}

func (f *Fake) ReactionUsers(_ context.Context, channelID, messageID string, e host.Emoji) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return nil, err
	}
	for _, r := range m.reactions {
		if r.emoji.APIName() == e.APIName() {
			out := make([]string, len(r.users))
			copy(out, r.users)
			return out, nil
		}
	}
	return nil, nil
}

func (f *Fake) FetchMessage(_ context.Context, channelID, messageID string) (*host.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fetches++
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return nil, err
	}
	return f.snapshot(m), nil
}

func (f *Fake) CachedMessage(channelID, messageID string) (*host.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cached[messageID] {
		return nil, false
	}
	m, err := f.lookup(channelID, messageID)
	if err != nil {
		return nil, false
	}
	if c := f.copies[messageID]; f.StaleCache && c != nil {
		out := *c
		out.Reactions = append([]host.Reaction(nil), c.Reactions...)
		return &out, true
	}
	return f.snapshot(m), true
}

func (f *Fake) CacheMessage(m *host.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[m.ID]; ok {
		f.cached[m.ID] = true
		cp := *m
		cp.Reactions = append([]host.Reaction(nil), m.Reactions...)
		f.copies[m.ID] = &cp
	}
}
