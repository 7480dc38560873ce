package relay

import (
	"sync"
	"time"
)

// CardThrottle limits user-card announcements to one per user per UTC
// calendar day. State is process-local and intentionally lost on restart.
type CardThrottle struct {
	mu       sync.Mutex
	lastSent map[int64]string
}

func NewCardThrottle() *CardThrottle {
	return &CardThrottle{lastSent: make(map[int64]string)}
}

// Allow reports whether a card may be sent for the user now, and records
// the send when it may.
func (t *CardThrottle) Allow(userID int64, now time.Time) bool {
	today := now.UTC().Format("2006-01-02")

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSent[userID] == today {
		return false
	}
	t.lastSent[userID] = today
	return true
}
