package polls

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

type Action string

const (
	ActionCreated  Action = "created"
	ActionAttached Action = "attached"
	ActionDeleted  Action = "deleted"
	ActionFrozen   Action = "frozen"
	ActionUnfrozen Action = "unfrozen"
	ActionCleared  Action = "cleared"
)

// Event describes a completed lifecycle change.
type Event struct {
	Action Action
	Poll   domain.Poll
	UserID string
}

// Notifier is told about lifecycle changes. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifyTimeout bounds a single notification. Notifications are sent after
// every poll lock is released.
const NotifyTimeout = 10 * time.Second

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

func (c *core) notify(ctx context.Context, action Action, p domain.Poll, userID string) {
	ctx, cancel := context.WithTimeout(ctx, NotifyTimeout)
	defer cancel()

	if err := c.notifier.Notify(ctx, Event{Action: action, Poll: p, UserID: userID}); err != nil {
		log.Warn().Err(err).Str("poll", p.ID).Str("action", string(action)).Msg("notify failed")
	}
}
