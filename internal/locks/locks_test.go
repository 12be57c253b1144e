package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_SameKeySameMutex(t *testing.T) {
	t.Parallel()

	m := NewManager()
	assert.Same(t, m.Get("a"), m.Get("a"))
	assert.NotSame(t, m.Get("a"), m.Get("b"))

	old := m.Get("a")
	m.Forget("a")
	assert.NotSame(t, old, m.Get("a"))
}

func TestManager_LockSerializesPerKey(t *testing.T) {
	t.Parallel()

	m := NewManager()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("poll")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
