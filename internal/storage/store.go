package storage

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/maaaruch/reactionpoll-bot/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Backend persists the whole poll collection at once.
type Backend interface {
	Load(ctx context.Context) (map[string]domain.Poll, error)
	Save(ctx context.Context, polls map[string]domain.Poll) error
}

// Store keeps every poll in memory and rewrites the backend on each
// mutation. Saves happen in mutation order, so the last completed write
// always reflects the latest state.
type Store struct {
	backend Backend

	saveMu    sync.Mutex
	mu        sync.RWMutex
	polls     map[string]domain.Poll
	byMessage map[string]string
}

func Open(ctx context.Context, backend Backend) (*Store, error) {
	polls, err := backend.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load polls")
	}
	if polls == nil {
		polls = make(map[string]domain.Poll)
	}
	s := &Store{
		backend: backend,
		polls:   polls,
	}
	s.reindex()
	return s, nil
}

func (s *Store) Get(id string) (domain.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[id]
	return p, ok
}

// FindByMessage returns the poll bound to messageID. When several records
// point at the same message the one with the lowest id is returned.
func (s *Store) FindByMessage(messageID string) (domain.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byMessage[messageID]
	if !ok {
		return domain.Poll{}, false
	}
	p, ok := s.polls[id]
	return p, ok
}

// All returns the polls ordered by numeric id.
func (s *Store) All() []domain.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Poll, 0, len(s.polls))
	for _, p := range s.polls {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

// AllocateID returns the smallest positive integer not used as an id.
// The caller has to Put the new poll before allocating again.
func (s *Store) AllocateID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for n := 1; ; n++ {
		id := strconv.Itoa(n)
		if _, used := s.polls[id]; !used {
			return id
		}
	}
}

func (s *Store) Put(ctx context.Context, p domain.Poll) error {
	return s.mutate(ctx, p.ID, func(polls map[string]domain.Poll) error {
		polls[p.ID] = p
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(polls map[string]domain.Poll) error {
		if _, ok := polls[id]; !ok {
			return ErrNotFound
		}
		delete(polls, id)
		return nil
	})
}

// mutate applies fn to the collection and saves a snapshot. A failed save
// restores the previous value of id.
func (s *Store) mutate(ctx context.Context, id string, fn func(map[string]domain.Poll) error) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	prev, existed := s.polls[id]
	if err := fn(s.polls); err != nil {
		s.mu.Unlock()
		return err
	}
	s.reindex()
	snapshot := make(map[string]domain.Poll, len(s.polls))
	for k, v := range s.polls {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if err := s.backend.Save(ctx, snapshot); err != nil {
		s.mu.Lock()
		if existed {
			s.polls[id] = prev
		} else {
			delete(s.polls, id)
		}
		s.reindex()
		s.mu.Unlock()
		return errors.Wrap(err, "save polls")
	}
	return nil
}

// reindex rebuilds the message index. Must be called with mu held.
func (s *Store) reindex() {
	idx := make(map[string]string, len(s.polls))
	for id, p := range s.polls {
		if cur, ok := idx[p.MessageID]; ok && !idLess(id, cur) {
			continue
		}
		idx[p.MessageID] = id
	}
	s.byMessage = idx
}

func idLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
