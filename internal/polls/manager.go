package polls

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
	"github.com/maaaruch/reactionpoll-bot/internal/host"
)

// Manager is the only writer of poll definitions.
type Manager struct {
	*core

	// createMu keeps id allocation and insertion together.
	createMu sync.Mutex
}

type CreateRequest struct {
	ChannelID       string
	Author          host.User
	Question        string
	MaxVotesPerUser int
	Options         []string
}

type AttachRequest struct {
	ChannelID       string
	MessageID       string
	Author          host.User
	MaxVotesPerUser int
	Options         []string
}

// Create posts a new poll embed in the request channel and seeds it with
// the allowed reactions. Nothing is stored unless every reaction could be
// attached.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (domain.Poll, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.Poll{}, errors.Wrap(ErrValidation, "question is empty")
	}
	if req.MaxVotesPerUser < 0 {
		return domain.Poll{}, errors.Wrap(ErrValidation, "max votes must not be negative")
	}
	options, emojis, err := m.resolveOptions(ctx, req.Options)
	if err != nil {
		return domain.Poll{}, err
	}

	p, err := m.post(ctx, req, question, options, emojis)
	if err != nil {
		return domain.Poll{}, err
	}
	m.notify(ctx, ActionCreated, p, req.Author.ID)
	return p, nil
}

// post sends the poll embed under a freshly allocated id and seeds it.
func (m *Manager) post(ctx context.Context, req CreateRequest, question string, options domain.OptionSet, emojis []host.Emoji) (domain.Poll, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	id := m.store.AllocateID()
	display := host.Display{
		Title:       question,
		Description: standaloneTally(id, 0),
		Color:       rand.Intn(0xFFFFFF + 1),
		Footer:      "Poll by " + req.Author.Name,
		FooterIcon:  req.Author.AvatarURL,
	}
	msg, err := m.host.SendDisplay(ctx, req.ChannelID, display)
	if err != nil {
		return domain.Poll{}, errors.Wrapf(ErrHost, "send poll: %v", err)
	}

	p := domain.Poll{
		ID:              id,
		MessageID:       msg.ID,
		ChannelID:       req.ChannelID,
		CreatedBy:       req.Author.ID,
		Status:          domain.StatusActive,
		MaxVotesPerUser: req.MaxVotesPerUser,
		AllowedOptions:  options,
		Kind:            domain.KindStandalone,
	}
	if err := m.seed(ctx, p, emojis); err != nil {
		return domain.Poll{}, err
	}
	return p, nil
}

// Attach turns an existing message into a poll.
func (m *Manager) Attach(ctx context.Context, req AttachRequest) (domain.Poll, error) {
	if req.MaxVotesPerUser < 0 {
		return domain.Poll{}, errors.Wrap(ErrValidation, "max votes must not be negative")
	}
	options, emojis, err := m.resolveOptions(ctx, req.Options)
	if err != nil {
		return domain.Poll{}, err
	}

	msg, err := m.message(ctx, req.ChannelID, req.MessageID)
	if err != nil {
		return domain.Poll{}, resolveErr(err, "message "+req.MessageID)
	}

	p := domain.Poll{
		MessageID:       msg.ID,
		ChannelID:       req.ChannelID,
		CreatedBy:       req.Author.ID,
		Status:          domain.StatusActive,
		MaxVotesPerUser: req.MaxVotesPerUser,
		AllowedOptions:  options,
		Kind:            domain.KindAttached,
	}
	p, err = m.insert(ctx, p, emojis)
	if err != nil {
		return domain.Poll{}, err
	}
	m.notify(ctx, ActionAttached, p, req.Author.ID)
	return p, nil
}

// insert allocates an id for p and seeds it.
func (m *Manager) insert(ctx context.Context, p domain.Poll, emojis []host.Emoji) (domain.Poll, error) {
	m.createMu.Lock()
	defer m.createMu.Unlock()

	p.ID = m.store.AllocateID()
	if err := m.seed(ctx, p, emojis); err != nil {
		return domain.Poll{}, err
	}
	return p, nil
}

// seed attaches the allowed reactions and stores the poll. Reaction
// events for the message wait on its lock until the record exists.
func (m *Manager) seed(ctx context.Context, p domain.Poll, emojis []host.Emoji) error {
	unlock := m.locks.Lock(p.MessageID)
	defer unlock()

	for _, e := range emojis {
		if err := m.host.AddReaction(ctx, p.ChannelID, p.MessageID, e); err != nil {
			return errors.Wrapf(ErrHost, "add reaction %s: %v", e.Token(), err)
		}
	}
	if err := m.store.Put(ctx, p); err != nil {
		return err
	}
	log.Info().Str("poll", p.ID).Str("kind", string(p.Kind)).Str("message", p.MessageID).
		Strs("options", p.AllowedOptions.Tokens()).Msg("poll stored")
	return nil
}

// Delete removes the record. Reactions on the message are left alone.
func (m *Manager) Delete(ctx context.Context, id, userID string) error {
	p, unlock, err := m.lockOwned(id, userID)
	if err != nil {
		return err
	}
	err = m.store.Delete(ctx, p.ID)
	if err == nil {
		m.forgetLock(p.MessageID)
	}
	unlock()
	if err != nil {
		return err
	}

	m.notify(ctx, ActionDeleted, p, userID)
	return nil
}

// forgetLock drops the message lock once no poll references the message.
// Called with the lock held; a waiter on the old mutex finds no poll.
func (m *Manager) forgetLock(messageID string) {
	if _, ok := m.store.FindByMessage(messageID); ok {
		return
	}
	m.locks.Forget(messageID)
}

// Freeze toggles the poll between active and frozen and returns the new
// status.
func (m *Manager) Freeze(ctx context.Context, id, userID string) (domain.Status, error) {
	p, unlock, err := m.lockOwned(id, userID)
	if err != nil {
		return "", err
	}

	action := ActionFrozen
	if p.Frozen() {
		p.Status = domain.StatusActive
		action = ActionUnfrozen
	} else {
		p.Status = domain.StatusFrozen
	}
	err = m.store.Put(ctx, p)
	unlock()
	if err != nil {
		return "", err
	}

	m.notify(ctx, action, p, userID)
	return p.Status, nil
}

// Clear wipes every reaction from an active poll and re-attaches the
// allowed options in their original order.
func (m *Manager) Clear(ctx context.Context, id, userID string) error {
	p, unlock, err := m.lockOwned(id, userID)
	if err != nil {
		return err
	}
	err = m.clear(ctx, p)
	unlock()
	if err != nil {
		return err
	}

	m.notify(ctx, ActionCleared, p, userID)
	return nil
}

func (m *Manager) clear(ctx context.Context, p domain.Poll) error {
	if p.Frozen() {
		return errors.Wrapf(ErrStateConflict, "poll %s is frozen", p.ID)
	}

	emojis, err := m.attachEmoji(ctx, p.AllowedOptions)
	if err != nil {
		return err
	}
	if _, err := m.message(ctx, p.ChannelID, p.MessageID); err != nil {
		return resolveErr(err, "poll "+p.ID+" message")
	}
	if err := m.host.ClearReactions(ctx, p.ChannelID, p.MessageID); err != nil {
		return errors.Wrapf(ErrHost, "clear reactions: %v", err)
	}
	for _, e := range emojis {
		if err := m.host.AddReaction(ctx, p.ChannelID, p.MessageID, e); err != nil {
			return errors.Wrapf(ErrHost, "add reaction %s: %v", e.Token(), err)
		}
	}

	// the platform reports a clear as one event the reconciler never sees
	if msg, err := m.current(ctx, p.ChannelID, p.MessageID); err == nil {
		m.rewriteTally(ctx, p, msg)
	} else {
		log.Warn().Err(err).Str("poll", p.ID).Msg("refetch after clear failed")
	}
	return nil
}

// List returns every poll ordered by id.
func (m *Manager) List() []domain.Poll {
	return m.store.All()
}

// Get looks up a poll; a leading '#' on the id is ignored.
func (m *Manager) Get(id string) (domain.Poll, error) {
	id = normalizeID(id)
	if id == "" {
		return domain.Poll{}, errors.Wrap(ErrValidation, "poll id is required")
	}
	p, ok := m.store.Get(id)
	if !ok {
		return domain.Poll{}, errors.Wrapf(ErrNotFound, "poll %s", id)
	}
	return p, nil
}

// lockOwned takes the poll's message lock and returns the poll as read
// under it, checking that userID created it.
func (m *Manager) lockOwned(id, userID string) (domain.Poll, func(), error) {
	p, err := m.Get(id)
	if err != nil {
		return domain.Poll{}, nil, err
	}
	unlock := m.locks.Lock(p.MessageID)

	p, ok := m.store.Get(p.ID)
	if !ok {
		unlock()
		return domain.Poll{}, nil, errors.Wrapf(ErrNotFound, "poll %s", id)
	}
	if p.CreatedBy != userID {
		unlock()
		return domain.Poll{}, nil, errors.Wrapf(ErrPermission, "poll %s belongs to someone else", p.ID)
	}
	return p, unlock, nil
}

func normalizeID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "#")
}
