// Package host describes the chat platform the poll engine talks to.
//
// The engine never imports a platform SDK. Everything it needs from the
// platform goes through Host, which the discord package implements for
// production and hosttest implements in memory for tests.
package host

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when a message or channel cannot be resolved.
var ErrNotFound = errors.New("not found")

// Emoji is a unicode emoji (ID empty) or a custom guild emoji.
type Emoji struct {
	ID       string
	Name     string
	Animated bool
}

func Unicode(s string) Emoji {
	return Emoji{Name: s}
}

func (e Emoji) Custom() bool {
	return e.ID != ""
}

// Token is the canonical text form: the literal for unicode emoji and
// <:name:id> or <a:name:id> for custom ones.
func (e Emoji) Token() string {
	if !e.Custom() {
		return e.Name
	}
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// APIName is the form reaction endpoints expect.
func (e Emoji) APIName() string {
	if !e.Custom() {
		return e.Name
	}
	return e.Name + ":" + e.ID
}

var customEmojiRe = regexp.MustCompile(`^<(a?):([A-Za-z0-9_~]+):([0-9]+)>$`)

// ParseCustom parses a <:name:id> or <a:name:id> reference.
func ParseCustom(token string) (Emoji, bool) {
	m := customEmojiRe.FindStringSubmatch(token)
	if m == nil {
		return Emoji{}, false
	}
	return Emoji{ID: m[3], Name: m[2], Animated: m[1] == "a"}, true
}

type Reaction struct {
	Emoji Emoji
	Count int
	Me    bool
}

// Display is the structured (embed) body of a message.
type Display struct {
	Title       string
	Description string
	Color       int
	Footer      string
	FooterIcon  string
}

type Message struct {
	ID        string
	ChannelID string
	AuthorID  string
	Content   string
	Display   *Display
	Reactions []Reaction
}

// TotalReactions sums the counts of every reaction on the message.
func (m *Message) TotalReactions() int {
	n := 0
	for _, r := range m.Reactions {
		n += r.Count
	}
	return n
}

type User struct {
	ID        string
	Name      string
	AvatarURL string
}

// Host is the set of platform calls the engine issues. Every blocking
// call takes a context; the cache methods are local.
type Host interface {
	BotUserID() string
	CustomEmojis(ctx context.Context) ([]Emoji, error)

	SendText(ctx context.Context, channelID, text string) error
	SendDisplay(ctx context.Context, channelID string, d Display) (*Message, error)
	EditContent(ctx context.Context, channelID, messageID, content string) (*Message, error)
	EditDisplay(ctx context.Context, channelID, messageID string, d Display) (*Message, error)

	AddReaction(ctx context.Context, channelID, messageID string, e Emoji) error
	RemoveReaction(ctx context.Context, channelID, messageID string, e Emoji, userID string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
	ReactionUsers(ctx context.Context, channelID, messageID string, e Emoji) ([]string, error)

	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
	CachedMessage(channelID, messageID string) (*Message, bool)
	CacheMessage(m *Message)
}
