package polls

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Refresher keeps every poll message in the host's message cache so
// reaction events find a live message. The platform evicts old messages
// on its own schedule.
type Refresher struct {
	*core
	interval time.Duration
}

// Run refreshes once immediately and then every interval until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.RefreshOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RefreshOnce fetches and caches every poll message missing from the
// cache. Failures are logged and retried on the next cycle. It returns
// how many messages were cached.
func (r *Refresher) RefreshOnce(ctx context.Context) int {
	cached := 0
	for _, p := range r.store.All() {
		if ctx.Err() != nil {
			return cached
		}
		if _, ok := r.host.CachedMessage(p.ChannelID, p.MessageID); ok {
			continue
		}
		msg, err := r.host.FetchMessage(ctx, p.ChannelID, p.MessageID)
		if err != nil {
			log.Warn().Err(err).Str("poll", p.ID).Str("message", p.MessageID).Msg("caching failed")
			continue
		}
		r.host.CacheMessage(msg)
		cached++
	}
	if cached > 0 {
		log.Debug().Int("cached", cached).Msg("poll messages cached")
	}
	return cached
}
