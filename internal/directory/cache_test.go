package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/chatline/internal/chat"
)

type stubFetcher struct {
	users   []chat.User
	me      chat.User
	err     error
	meErr   error
	block   chan struct{}
	started chan struct{}
	calls   int
}

func (s *stubFetcher) Users(ctx context.Context) ([]chat.User, error) {
	s.calls++
	if s.started != nil {
		close(s.started)
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
		}
	}
	return s.users, s.err
}

func (s *stubFetcher) Me(context.Context) (chat.User, error) {
	return s.me, s.meErr
}

func newTestCache(f Fetcher) *Cache {
	return New(f, WithLogger(zerolog.Nop()))
}

func TestRefreshStoresUsersInOrder(t *testing.T) {
	f := &stubFetcher{users: []chat.User{
		{ID: "b", FullName: "Bea"},
		{ID: "a", FullName: "Abe"},
	}}
	c := newTestCache(f)
	require.False(t, c.Loaded())

	require.NoError(t, c.Refresh(context.Background()))
	require.True(t, c.Loaded())
	require.False(t, c.Loading())
	require.Equal(t, []chat.User{{ID: "b", FullName: "Bea"}, {ID: "a", FullName: "Abe"}}, c.Users())
}

func TestRefreshDropsRecordsWithoutID(t *testing.T) {
	f := &stubFetcher{users: []chat.User{
		{ID: "", FullName: "Ghost"},
		{ID: "a", FullName: "Abe"},
		{ID: "a", FullName: "Abe again"},
	}}
	c := newTestCache(f)
	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, []chat.User{{ID: "a", FullName: "Abe"}}, c.Users())
}

func TestUsersNeverIncludesSelf(t *testing.T) {
	f := &stubFetcher{
		users: []chat.User{{ID: "me", FullName: "Me"}, {ID: "a", FullName: "Abe"}},
		me:    chat.User{ID: "me", FullName: "Me"},
	}
	c := newTestCache(f)
	require.NoError(t, c.Refresh(context.Background()))
	require.Len(t, c.Users(), 2)

	me, err := c.CheckAuth(context.Background())
	require.NoError(t, err)
	require.Equal(t, chat.UserID("me"), me.ID)
	require.Equal(t, []chat.User{{ID: "a", FullName: "Abe"}}, c.Users())

	self, ok := c.Self()
	require.True(t, ok)
	require.Equal(t, "Me", self.FullName)

	found, ok := c.Lookup("me")
	require.True(t, ok)
	require.Equal(t, self, found)
}

func TestRefreshErrorKeepsPreviousListing(t *testing.T) {
	f := &stubFetcher{users: []chat.User{{ID: "a"}}}
	c := newTestCache(f)
	require.NoError(t, c.Refresh(context.Background()))

	f.err = errors.New("offline")
	err := c.Refresh(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, c.Err(), "offline")
	require.Len(t, c.Users(), 1)

	f.err = nil
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Err())
}

func TestRefreshDiscardsResultAfterCancel(t *testing.T) {
	f := &stubFetcher{
		users:   []chat.User{{ID: "a"}},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	c := newTestCache(f)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Refresh(ctx) }()
	<-f.started
	require.True(t, c.Loading())
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)
	require.Empty(t, c.Users())
	require.False(t, c.Loading())
	require.False(t, c.Loaded())
}

func TestCheckAuthRejectsEmptyIdentity(t *testing.T) {
	c := newTestCache(&stubFetcher{me: chat.User{FullName: "nobody"}})
	_, err := c.CheckAuth(context.Background())
	require.ErrorIs(t, err, chat.ErrInvalidUserID)
	_, ok := c.Self()
	require.False(t, ok)
}

func TestCheckAuthPropagatesFetchError(t *testing.T) {
	sentinel := errors.New("unauthorized")
	c := newTestCache(&stubFetcher{meErr: sentinel})
	_, err := c.CheckAuth(context.Background())
	require.ErrorIs(t, err, sentinel)
}

func TestNoFetcher(t *testing.T) {
	c := newTestCache(nil)
	require.ErrorIs(t, c.Refresh(context.Background()), ErrNoFetcher)
	_, err := c.CheckAuth(context.Background())
	require.ErrorIs(t, err, ErrNoFetcher)

	c.SetSelf(chat.User{ID: "me"})
	self, ok := c.Self()
	require.True(t, ok)
	require.Equal(t, chat.UserID("me"), self.ID)
}

func TestSubscribeFiresOnChanges(t *testing.T) {
	c := newTestCache(&stubFetcher{users: []chat.User{{ID: "a"}}})
	calls := 0
	cancel := c.Subscribe(func() { calls++ })

	require.NoError(t, c.Refresh(context.Background()))
	require.Equal(t, 2, calls) // loading, loaded

	c.SetSelf(chat.User{ID: "me"})
	require.Equal(t, 3, calls)
	c.SetSelf(chat.User{ID: "me"})
	require.Equal(t, 3, calls)

	cancel()
	c.SetSelf(chat.User{})
	require.Equal(t, 3, calls)
	_, ok := c.Self()
	require.False(t, ok)
}
