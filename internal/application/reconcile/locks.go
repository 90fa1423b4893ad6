package reconcile

import (
	"sync"

	"github.com/google/uuid"
)

// sukukLocker serializes supply-affecting operations per sukuk so concurrent
// sales cannot race the available-supply check. The conditional decrements in
// the off-chain transactions remain a second line of defense.
type sukukLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func (l *sukukLocker) lock(id uuid.UUID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
