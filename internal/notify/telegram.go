// Package notify forwards poll lifecycle events to an operator chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/maaaruch/reactionpoll-bot/internal/polls"
)

// Telegram posts one message per event to a single chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ polls.Notifier = (*Telegram)(nil)

// SendTimeout bounds each Bot API request.
const SendTimeout = 10 * time.Second

func NewTelegram(token string, chatID int64, debug bool) (*Telegram, error) {
	return NewTelegramWithClient(token, tgbotapi.APIEndpoint, chatID, debug, &http.Client{Timeout: SendTimeout})
}

// NewTelegramWithClient talks to endpoint, a format string taking the
// token and the method name.
func NewTelegramWithClient(token, endpoint string, chatID int64, debug bool, client tgbotapi.HTTPClient) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	bot.Debug = debug
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Name is the bot username, for startup logging.
func (t *Telegram) Name() string {
	return t.bot.Self.UserName
}

// Notify returns when the message is sent or ctx is done. The Bot API
// client takes no context, so an abandoned send finishes in the
// background, bounded by the HTTP client timeout.
func (t *Telegram) Notify(ctx context.Context, ev polls.Event) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "send %s event for poll %s", ev.Action, ev.Poll.ID)
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, Format(ev)))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "send %s event for poll %s", ev.Action, ev.Poll.ID)
		}
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "send %s event for poll %s", ev.Action, ev.Poll.ID)
	}
}

// Format renders an event as a single chat line.
func Format(ev polls.Event) string {
	p := ev.Poll
	var sb strings.Builder
	fmt.Fprintf(&sb, "Poll #%s %s by %s", p.ID, ev.Action, ev.UserID)
	fmt.Fprintf(&sb, " (channel %s, message %s", p.ChannelID, p.MessageID)
	switch ev.Action {
	case polls.ActionCreated, polls.ActionAttached:
		max := "unlimited"
		if !p.Unlimited() {
			max = fmt.Sprint(p.MaxVotesPerUser)
		}
		fmt.Fprintf(&sb, ", %s, max votes %s, options %s", p.Kind, max, strings.Join(p.AllowedOptions.Tokens(), " "))
	}
	sb.WriteString(")")
	return sb.String()
}
