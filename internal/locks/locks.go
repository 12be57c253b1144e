package locks

import "sync"

// Manager hands out one mutex per key. Keys are poll message ids, so the
// map stays as small as the set of polls.
type Manager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager() *Manager {
	return &Manager{
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *Manager) Get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.locks[key]
	if l == nil {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// Lock acquires the mutex for key and returns its unlock func.
func (m *Manager) Lock(key string) func() {
	l := m.Get(key)
	l.Lock()
	return l.Unlock
}

// Forget drops the mutex for key. Holders of the old mutex are unaffected.
func (m *Manager) Forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, key)
}
