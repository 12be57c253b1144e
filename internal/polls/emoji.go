package polls

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rivo/uniseg"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

// validateOption accepts a custom emoji reference or a single grapheme.
func validateOption(token string) error {
	if _, ok := host.ParseCustom(token); ok {
		return nil
	}
	if strings.TrimSpace(token) != token || uniseg.GraphemeClusterCount(token) != 1 {
		return errors.Wrapf(ErrValidation, "%q is not an emoji", token)
	}
	return nil
}

// resolveToken matches token against the known custom emoji, falling
// back to a unicode literal.
func resolveToken(token string, custom []host.Emoji) host.Emoji {
	for _, e := range custom {
		if e.Token() == token {
			return e
		}
	}
	if e, ok := host.ParseCustom(token); ok {
		return e
	}
	return host.Unicode(token)
}

// canonicalToken is the form a reaction is compared against a poll's
// allowed options. Custom emoji are looked up by id so a renamed or
// re-animated emoji still matches.
func canonicalToken(e host.Emoji, custom []host.Emoji) string {
	if e.Custom() {
		for _, c := range custom {
			if c.ID == e.ID {
				return c.Token()
			}
		}
	}
	return e.Token()
}

// resolveOptions validates and resolves the requested options, returning
// the ordered option set and the emoji to attach in the same order.
func (c *core) resolveOptions(ctx context.Context, tokens []string) (domain.OptionSet, []host.Emoji, error) {
	if len(tokens) == 0 {
		return domain.OptionSet{}, nil, errors.Wrap(ErrValidation, "at least one emoji is required")
	}
	for _, t := range tokens {
		if err := validateOption(t); err != nil {
			return domain.OptionSet{}, nil, err
		}
	}

	custom, err := c.host.CustomEmojis(ctx)
	if err != nil {
		return domain.OptionSet{}, nil, errors.Wrapf(ErrHost, "list custom emoji: %v", err)
	}

	var set domain.OptionSet
	resolved := make(map[string]host.Emoji, len(tokens))
	for _, t := range tokens {
		e := resolveToken(t, custom)
		set.Add(e.Token())
		resolved[e.Token()] = e
	}
	return set, emojiFor(set, resolved), nil
}

// attachEmoji resolves an existing option set for re-attachment.
func (c *core) attachEmoji(ctx context.Context, set domain.OptionSet) ([]host.Emoji, error) {
	custom, err := c.host.CustomEmojis(ctx)
	if err != nil {
		return nil, errors.Wrapf(ErrHost, "list custom emoji: %v", err)
	}
	resolved := make(map[string]host.Emoji, set.Len())
	for _, t := range set.Tokens() {
		resolved[t] = resolveToken(t, custom)
	}
	return emojiFor(set, resolved), nil
}

func emojiFor(set domain.OptionSet, resolved map[string]host.Emoji) []host.Emoji {
	out := make([]host.Emoji, 0, set.Len())
	for _, t := range set.Tokens() {
		out = append(out, resolved[t])
	}
	return out
}
