package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/db"
	"github.com/tOgg1/chatline/internal/server"
)

// Backend is a seeded development backend listening on loopback.
type Backend struct {
	URL    string
	Users  []chat.User
	Server *server.Server
}

// User returns the seeded user with email or fails the test.
func (b *Backend) User(t *testing.T, email string) chat.User {
	t.Helper()
	for _, u := range b.Users {
		if u.Email == email {
			return u
		}
	}
	t.Fatalf("no seeded user %s", email)
	return chat.User{}
}

// StartBackend serves a seeded in-memory backend until the test ends.
func StartBackend(t *testing.T) *Backend {
	t.Helper()
	SkipIfNoNetwork(t)
	ctx, cancel := context.WithCancel(context.Background())

	store, err := db.OpenInMemory(ctx)
	require.NoError(t, err)
	users, err := db.Seed(ctx, store)
	require.NoError(t, err)

	log := zerolog.Nop()
	srv, err := server.New(server.Config{DB: store, Logger: &log, ShutdownTimeout: time.Second})
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("backend did not stop")
		}
		_ = store.Close()
	})
	return &Backend{URL: "http://" + ln.Addr().String(), Users: users, Server: srv}
}
