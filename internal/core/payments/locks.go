package payments

import (
	"sync"

	"github.com/google/uuid"
)

// billLocks hands out one mutex per bill so concurrent submissions against
// the same bill serialize while different bills proceed in parallel.
// Entries are released when the last holder lets go.
type billLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*billLock
}

type billLock struct {
	sync.Mutex
	refs int
}

func newBillLocks() *billLocks {
	return &billLocks{locks: make(map[uuid.UUID]*billLock)}
}

func (l *billLocks) lock(billID uuid.UUID) {
	l.mu.Lock()
	entry, ok := l.locks[billID]
	if !ok {
		entry = &billLock{}
		l.locks[billID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
}

func (l *billLocks) unlock(billID uuid.UUID) {
	l.mu.Lock()
	entry := l.locks[billID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, billID)
	}
	l.mu.Unlock()

	entry.Unlock()
}
