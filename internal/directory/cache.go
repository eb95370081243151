// Package directory caches the user directory and the authenticated identity.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/events"
	"github.com/tOgg1/chatline/internal/logging"
)

// Fetcher loads directory data from the backend.
type Fetcher interface {
	Users(ctx context.Context) ([]chat.User, error)
	Me(ctx context.Context) (chat.User, error)
}

// ErrNoFetcher is returned by Refresh and CheckAuth on a cache built without a fetcher.
var ErrNoFetcher = errors.New("directory: no fetcher configured")

// Cache holds the directory listing. It never lists the local identity.
type Cache struct {
	fetcher Fetcher
	pub     *events.Publisher
	log     zerolog.Logger

	mu       sync.RWMutex
	all      []chat.User
	self     chat.User
	hasSelf  bool
	inflight int
	loaded   bool
	err      error
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger overrides the component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// New returns an empty cache backed by fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		pub:     events.NewPublisher(),
		log:     logging.Component("directory"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh replaces the listing with the fetcher's result. A result that
// arrives after ctx is done is discarded.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.fetcher == nil {
		return ErrNoFetcher
	}

	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
	c.publish(events.KindDirectory, "")

	users, err := c.fetcher.Users(ctx)

	c.mu.Lock()
	c.inflight--
	if ctxErr := ctx.Err(); ctxErr != nil {
		c.mu.Unlock()
		c.publish(events.KindDirectory, "")
		return ctxErr
	}
	if err != nil {
		c.err = fmt.Errorf("refresh directory: %w", err)
		err = c.err
		c.mu.Unlock()
		c.log.Warn().Err(err).Msg("directory refresh failed")
		c.publish(events.KindDirectory, "")
		return err
	}
	kept, dropped := sanitize(users)
	c.all = kept
	c.loaded = true
	c.err = nil
	c.mu.Unlock()

	if dropped > 0 {
		c.log.Warn().Int("dropped", dropped).Msg("directory records without id ignored")
	}
	c.log.Debug().Int("users", len(kept)).Msg("directory refreshed")
	c.publish(events.KindDirectory, "")
	return nil
}

// CheckAuth asks the backend who the token belongs to and records it as self.
func (c *Cache) CheckAuth(ctx context.Context) (chat.User, error) {
	if c.fetcher == nil {
		return chat.User{}, ErrNoFetcher
	}
	me, err := c.fetcher.Me(ctx)
	if err != nil {
		return chat.User{}, fmt.Errorf("check auth: %w", err)
	}
	if err := chat.ValidateUserID(me.ID); err != nil {
		return chat.User{}, fmt.Errorf("check auth: %w", err)
	}
	c.SetSelf(me)
	return me, nil
}

// SetSelf records the authenticated identity. A zero user clears it.
func (c *Cache) SetSelf(user chat.User) {
	c.mu.Lock()
	if c.hasSelf == !user.ID.IsZero() && c.self == user {
		c.mu.Unlock()
		return
	}
	c.self = user
	c.hasSelf = !user.ID.IsZero()
	c.mu.Unlock()

	c.log.Debug().Str("user_id", user.ID.String()).Msg("identity set")
	c.publish(events.KindIdentity, user.ID)
}

// Self returns the authenticated identity, if known.
func (c *Cache) Self() (chat.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.self, c.hasSelf
}

// Users returns a copy of the listing in backend order, without self.
func (c *Cache) Users() []chat.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chat.User, 0, len(c.all))
	for _, user := range c.all {
		if c.hasSelf && user.ID == c.self.ID {
			continue
		}
		out = append(out, user)
	}
	return out
}

// Lookup returns the directory entry for id.
func (c *Cache) Lookup(id chat.UserID) (chat.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.hasSelf && id == c.self.ID {
		return c.self, true
	}
	for _, user := range c.all {
		if user.ID == id {
			return user, true
		}
	}
	return chat.User{}, false
}

// Loading reports whether a refresh is outstanding.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Loaded reports whether at least one refresh succeeded.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Err returns the last refresh error, cleared by a successful refresh.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Subscribe registers fn for every directory or identity change.
func (c *Cache) Subscribe(fn func()) (cancel func()) {
	return c.pub.OnChange(fn)
}

func (c *Cache) publish(kind events.Kind, subject chat.UserID) {
	c.pub.Publish(events.Event{Kind: kind, Subject: subject})
}

// sanitize drops records without an id and duplicate ids, keeping first occurrence.
func sanitize(users []chat.User) ([]chat.User, int) {
	out := make([]chat.User, 0, len(users))
	seen := make(map[chat.UserID]struct{}, len(users))
	dropped := 0
	for _, user := range users {
		if user.ID.IsZero() {
			dropped++
			continue
		}
		if _, ok := seen[user.ID]; ok {
			dropped++
			continue
		}
		seen[user.ID] = struct{}{}
		out = append(out, user)
	}
	return out, dropped
}
