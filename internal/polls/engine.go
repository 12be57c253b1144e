// Package polls implements reaction polls: the lifecycle commands, the
// reconciliation of reaction events against poll rules, and the loop that
// keeps poll messages in the platform's message cache.
//
// Handlers may run concurrently. Work on one poll message is serialized by
// a per-message lock and the poll record is always re-read after taking
// it; no lock is held across polls.
package polls

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
	"github.com/maaaruch/reactionpoll-bot/internal/locks"
)

// DefaultRefreshInterval is how often poll messages are re-cached.
const DefaultRefreshInterval = 300 * time.Second

// Store is the poll record collection.
type Store interface {
	Get(id string) (domain.Poll, bool)
	Put(ctx context.Context, p domain.Poll) error
	Delete(ctx context.Context, id string) error
	FindByMessage(messageID string) (domain.Poll, bool)
	AllocateID() string
	All() []domain.Poll
}

type Config struct {
	Store           Store
	Host            host.Host
	Notifier        Notifier
	RefreshInterval time.Duration
}

type core struct {
	store    Store
	host     host.Host
	locks    *locks.Manager
	notifier Notifier
}

// Engine bundles the three parts that share a store, a host and the
// per-message locks.
type Engine struct {
	Manager    *Manager
	Reconciler *Reconciler
	Refresher  *Refresher
}

func New(cfg Config) *Engine {
	c := &core{
		store:    cfg.Store,
		host:     cfg.Host,
		locks:    locks.NewManager(),
		notifier: cfg.Notifier,
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Engine{
		Manager:    &Manager{core: c},
		Reconciler: &Reconciler{core: c},
		Refresher:  &Refresher{core: c, interval: interval},
	}
}

// message resolves a poll message from the host cache, fetching and
// caching it on a miss.
func (c *core) message(ctx context.Context, channelID, messageID string) (*host.Message, error) {
	if m, ok := c.host.CachedMessage(channelID, messageID); ok {
		return m, nil
	}
	m, err := c.host.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	c.host.CacheMessage(m)
	return m, nil
}

// current fetches the live message and refreshes the cache with it.
// Reaction counts and users come from here; a cached copy may lag
// behind the reaction events.
func (c *core) current(ctx context.Context, channelID, messageID string) (*host.Message, error) {
	m, err := c.host.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		return nil, err
	}
	c.host.CacheMessage(m)
	return m, nil
}

// resolveErr classifies a failed message lookup: a message the platform
// does not know is ErrNotFound, anything else ErrHost.
func resolveErr(err error, what string) error {
	if errors.Is(err, host.ErrNotFound) {
		return errors.Wrapf(ErrNotFound, "%s: %v", what, err)
	}
	return errors.Wrapf(ErrHost, "%s: %v", what, err)
}
