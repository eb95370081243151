// Package presence tracks which users are online and keeps that set in sync
// with the backend's presence socket.
package presence

import (
	"sync"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/events"
)

// Tracker is the live online set. By backend convention the set includes the
// local user while connected.
type Tracker struct {
	mu  sync.RWMutex
	ids contacts.IDSet
	pub events.Publisher
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: contacts.NewIDSet()}
}

// Set replaces the online set. Observers fire only when membership changed.
func (t *Tracker) Set(ids []chat.UserID) {
	next := contacts.NewIDSet(ids...)
	t.mu.Lock()
	if next.Equal(t.ids) {
		t.mu.Unlock()
		return
	}
	t.ids = next
	t.mu.Unlock()
	t.pub.Publish(events.Event{Kind: events.KindPresence})
}

// Reset empties the set.
func (t *Tracker) Reset() {
	t.Set(nil)
}

// Snapshot returns a copy of the online set.
func (t *Tracker) Snapshot() contacts.IDSet {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Clone()
}

// Online returns the online ids in sorted order.
func (t *Tracker) Online() []chat.UserID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Sorted()
}

// Len returns the size of the online set.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Len()
}

// IsOnline reports whether id is in the set.
func (t *Tracker) IsOnline(id chat.UserID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ids.Has(id)
}

// Subscribe registers fn for membership changes.
func (t *Tracker) Subscribe(fn func()) (cancel func()) {
	return t.pub.OnChange(fn)
}
