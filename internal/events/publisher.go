// Package events provides in-process change notification for chatline's stores.
package events

import (
	"sync"
	"time"

	"github.com/tOgg1/chatline/internal/chat"
)

// Kind identifies which store changed.
type Kind string

const (
	KindDirectory Kind = "directory"
	KindIdentity  Kind = "identity"
	KindPresence  Kind = "presence"
	KindSelection Kind = "selection"
)

// Event describes a single store change.
type Event struct {
	Kind    Kind
	Subject chat.UserID
	At      time.Time
}

// Handler is invoked for every event matching its subscription.
type Handler func(Event)

// Filter selects events by kind. An empty filter matches everything.
type Filter struct {
	Kinds []Kind
}

// Matches reports whether event passes the filter.
func (f Filter) Matches(event Event) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if event.Kind == k {
			return true
		}
	}
	return false
}

type subscription struct {
	filter  Filter
	handler Handler
}

// Publisher fans events out to subscribers. The zero value is ready to use.
type Publisher struct {
	mu   sync.RWMutex
	subs map[uint64]*subscription
	next uint64
	now  func() time.Time
}

// NewPublisher returns an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish delivers event to every matching subscriber. Handlers run on the
// caller's goroutine, outside the publisher lock, so they may subscribe or
// cancel.
func (p *Publisher) Publish(event Event) {
	if event.At.IsZero() {
		event.At = p.clock()
	}

	p.mu.RLock()
	handlers := make([]Handler, 0, len(p.subs))
	for _, sub := range p.subs {
		if sub.filter.Matches(event) {
			handlers = append(handlers, sub.handler)
		}
	}
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Subscribe registers handler. The returned cancel func is idempotent.
func (p *Publisher) Subscribe(filter Filter, handler Handler) (cancel func(), err error) {
	if handler == nil {
		return func() {}, ErrNilHandler
	}

	p.mu.Lock()
	if p.subs == nil {
		p.subs = make(map[uint64]*subscription)
	}
	id := p.next
	p.next++
	p.subs[id] = &subscription{filter: filter, handler: handler}
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}, nil
}

// OnChange subscribes fn to every event. A nil fn yields a no-op cancel.
func (p *Publisher) OnChange(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	cancel, _ = p.Subscribe(Filter{}, func(Event) { fn() })
	return cancel
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subs)
}

func (p *Publisher) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now().UTC()
}

// PublisherError is returned for invalid subscriptions.
type PublisherError struct {
	Message string
}

func (e *PublisherError) Error() string {
	return e.Message
}

// ErrNilHandler is returned when Subscribe is given a nil handler.
var ErrNilHandler = &PublisherError{Message: "handler cannot be nil"}
