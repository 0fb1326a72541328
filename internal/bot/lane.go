package bot

import "sync"

// LaneLock serializes update handling per chat while letting different
// chats proceed concurrently. A global mutex guards the lane map and is
// held only to look up or create the per-chat mutex.
type LaneLock struct {
	mu    sync.Mutex
	lanes map[int64]*lane
}

// lane holds per-chat synchronization state. refs counts goroutines
// holding or waiting on the lane so idle lanes can be reclaimed.
type lane struct {
	mu   sync.Mutex
	refs int
}

// NewLaneLock creates a ready-to-use LaneLock.
func NewLaneLock() *LaneLock {
	return &LaneLock{lanes: make(map[int64]*lane)}
}

// Acquire gets or creates the per-chat mutex and locks it.
// The caller must call Release with the same chat id when done.
func (l *LaneLock) Acquire(chatID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[chatID]
	if !ok {
		ln = &lane{}
		l.lanes[chatID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other chats are not blocked.
	ln.mu.Lock()
}

// Release unlocks the per-chat mutex and drops the lane entry once no
// goroutine holds or waits on it, keeping the map bounded.
func (l *LaneLock) Release(chatID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[chatID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, chatID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}
