// File: internal/usecase/channel_locks.go
package usecase

import "sync"

// ChannelLocks is a keyed mutex over channel IDs. The driver and the
// reconciler share one instance so at most one of them works a channel's
// history at a time, no matter who invoked them: the dispatcher's actors,
// the sweeper's replay path or the launcher's first kick.
type ChannelLocks struct {
	mu    sync.Mutex
	locks map[string]*channelLock
}

type channelLock struct {
	mu   sync.Mutex
	refs int
}

func NewChannelLocks() *ChannelLocks {
	return &ChannelLocks{locks: map[string]*channelLock{}}
}

// Lock blocks until the channel's lock is held and returns its release func.
// Entries are refcounted so the map does not accumulate dead channels.
func (c *ChannelLocks) Lock(channelID string) (unlock func()) {
	c.mu.Lock()
	l, ok := c.locks[channelID]
	if !ok {
		l = &channelLock{}
		c.locks[channelID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, channelID)
		}
		c.mu.Unlock()
	}
}
