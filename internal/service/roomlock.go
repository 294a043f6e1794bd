package service

import (
	"sync"

	"github.com/google/uuid"
)

// roomLocker hands out one mutex per room id. Every mutation of a room's
// queue/current-item pair runs under that room's mutex, so two concurrent
// advance or remove calls cannot both observe the same item as playing
// and double-promote a successor. Rooms never contend with each other.
type roomLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newRoomLocker() *roomLocker {
	return &roomLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// Lock acquires the mutex for the given room and returns its unlock func.
func (l *roomLocker) Lock(roomID uuid.UUID) func() {
	l.mu.Lock()
	lock, ok := l.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[roomID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
