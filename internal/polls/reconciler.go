package polls

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

// ReactionEvent is a reaction added to or removed from a message.
type ReactionEvent struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     host.Emoji
}

// Reconciler checks reaction events against poll rules and keeps the
// rendered tally current.
type Reconciler struct {
	*core
}

// ReactionAdded reverses reactions the poll does not accept and otherwise
// updates the tally. The bot's own reactions are ignored.
func (r *Reconciler) ReactionAdded(ctx context.Context, ev ReactionEvent) {
	if ev.UserID == r.host.BotUserID() {
		return
	}

	unlock := r.locks.Lock(ev.MessageID)
	defer unlock()

	p, ok := r.store.FindByMessage(ev.MessageID)
	if !ok {
		return
	}
	logger := log.With().Str("poll", p.ID).Str("user", ev.UserID).Str("emoji", ev.Emoji.Token()).Logger()

	custom, err := r.host.CustomEmojis(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("list custom emoji")
	}
	token := canonicalToken(ev.Emoji, custom)

	msg, err := r.current(ctx, p.ChannelID, p.MessageID)
	if err != nil {
		logger.Warn().Err(err).Msg("poll message unavailable")
		return
	}

	reason, err := r.rejection(ctx, p, msg, token, ev.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("count user votes")
		return
	}
	if reason != "" {
		if err := r.host.RemoveReaction(ctx, p.ChannelID, p.MessageID, ev.Emoji, ev.UserID); err != nil {
			logger.Warn().Err(err).Str("reason", reason).Msg("reverse reaction failed")
			return
		}
		logger.Debug().Str("reason", reason).Msg("reaction reversed")
		return
	}

	r.rewriteTally(ctx, p, msg)
}

// ReactionRemoved only updates the tally.
func (r *Reconciler) ReactionRemoved(ctx context.Context, ev ReactionEvent) {
	unlock := r.locks.Lock(ev.MessageID)
	defer unlock()

	p, ok := r.store.FindByMessage(ev.MessageID)
	if !ok {
		return
	}
	msg, err := r.current(ctx, p.ChannelID, p.MessageID)
	if err != nil {
		log.Warn().Err(err).Str("poll", p.ID).Msg("poll message unavailable")
		return
	}
	r.rewriteTally(ctx, p, msg)
}

// rejection returns why a reaction must be reversed, or "" to accept it.
func (r *Reconciler) rejection(ctx context.Context, p domain.Poll, msg *host.Message, token, userID string) (string, error) {
	switch {
	case p.Frozen():
		return "frozen", nil
	case !p.AllowedOptions.Contains(token):
		return "option not allowed", nil
	case p.Unlimited():
		return "", nil
	}

	votes, err := r.userVotes(ctx, msg, userID)
	if err != nil {
		return "", err
	}
	if votes > p.MaxVotesPerUser {
		return "vote limit", nil
	}
	return "", nil
}

// userVotes counts the reactions on msg that include userID.
func (r *Reconciler) userVotes(ctx context.Context, msg *host.Message, userID string) (int, error) {
	n := 0
	for _, reaction := range msg.Reactions {
		users, err := r.host.ReactionUsers(ctx, msg.ChannelID, msg.ID, reaction.Emoji)
		if err != nil {
			return 0, err
		}
		for _, u := range users {
			if u == userID {
				n++
				break
			}
		}
	}
	return n, nil
}
