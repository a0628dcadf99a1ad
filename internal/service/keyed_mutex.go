package service

import "sync"

// keyedMutex serializes mutations per aggregate key. Appends and the
// reopening-rule evaluation read the pre-mutation state, so both must happen
// under the same lock as the write.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (m *keyedMutex) get(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == nil {
		m.locks[key] = &sync.Mutex{}
	}
	return m.locks[key]
}

// Lock acquires the mutex for key.
func (m *keyedMutex) Lock(key string) {
	m.get(key).Lock()
}

// Unlock releases the mutex for key.
func (m *keyedMutex) Unlock(key string) {
	m.get(key).Unlock()
}
