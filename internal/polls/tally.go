package polls

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

var tallyLabelRe = regexp.MustCompile(`(?i)((?:votes|replies):?) -?[0-9]+`)

func standaloneTally(pollID string, votes int) string {
	return fmt.Sprintf("Poll #%s, total votes: %d", pollID, votes)
}

// substituteTally replaces the number following every "votes" or
// "replies" label in content.
func substituteTally(content string, votes int) string {
	return tallyLabelRe.ReplaceAllString(content, "${1} "+strconv.Itoa(votes))
}

// countVotes is the number of reactions on msg that are not the poll's
// own seed reactions.
func countVotes(p domain.Poll, msg *host.Message) int {
	return msg.TotalReactions() - p.AllowedOptions.Len()
}

// rewriteTally renders the current vote count into the poll message and
// edits it when the rendered text changed. The edited message goes back
// into the host cache so a repeated call sees the new text.
func (c *core) rewriteTally(ctx context.Context, p domain.Poll, msg *host.Message) {
	votes := countVotes(p, msg)

	var (
		edited *host.Message
		err    error
	)
	switch p.Kind {
	case domain.KindStandalone:
		if msg.Display == nil {
			return
		}
		desc := standaloneTally(p.ID, votes)
		if msg.Display.Description == desc {
			return
		}
		d := *msg.Display
		d.Description = desc
		edited, err = c.host.EditDisplay(ctx, p.ChannelID, p.MessageID, d)

	case domain.KindAttached:
		if msg.AuthorID != c.host.BotUserID() {
			return
		}
		body := substituteTally(msg.Content, votes)
		if body == msg.Content {
			return
		}
		edited, err = c.host.EditContent(ctx, p.ChannelID, p.MessageID, body)

	default:
		return
	}

	if err != nil {
		log.Warn().Err(err).Str("poll", p.ID).Int("votes", votes).Msg("tally edit failed")
		return
	}
	c.host.CacheMessage(edited)
	log.Debug().Str("poll", p.ID).Int("votes", votes).Msg("tally updated")
}
