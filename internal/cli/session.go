package cli

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/api"
	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/config"
	"github.com/tOgg1/chatline/internal/directory"
	"github.com/tOgg1/chatline/internal/logging"
	"github.com/tOgg1/chatline/internal/presence"
)

// session is an authenticated connection to the backend plus the stores fed
// from it.
type session struct {
	cfg       *config.Config
	client    *api.Client
	directory *directory.Cache
	tracker   *presence.Tracker
	feed      *presence.Feed
	self      chat.User
	log       zerolog.Logger
}

// openSession checks the token and prepares the presence feed. The feed is
// not started.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	log := logging.Component("cli")

	client, err := api.New(api.Config{
		BaseURL: cfg.Server.URL,
		Token:   cfg.Auth.Token,
		Timeout: cfg.Server.Timeout,
	})
	if err != nil {
		return nil, &ExitError{Code: ExitCodeConfig, Err: err}
	}
	log.Debug().
		Str("server", logging.RedactURL(client.BaseURL())).
		Str("token", logging.Redact(cfg.Auth.Token)).
		Msg("connecting")

	cache := directory.New(client)
	self, err := cache.CheckAuth(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return nil, Exitf(ExitCodeAuth, "not signed in: set --token or %s", config.EnvVar("auth.token"))
		}
		return nil, Exitf(ExitCodeFailure, "%v", err)
	}

	s := &session{
		cfg:       cfg,
		client:    client,
		directory: cache,
		tracker:   presence.NewTracker(),
		self:      self,
		log:       logging.WithUser(self.ID.String()),
	}
	s.log.Debug().Str("server", logging.RedactURL(client.BaseURL())).Msg("signed in")
	if cfg.Presence.Enabled {
		s.feed, err = presence.NewFeed(s.tracker, presence.FeedConfig{
			URL:               client.PresenceURL(self.ID),
			Header:            client.AuthHeader(),
			ReconnectInterval: cfg.Presence.ReconnectInterval,
			Logger:            componentLogger("presence"),
		})
		if err != nil {
			return nil, Exitf(ExitCodeFailure, "presence feed: %v", err)
		}
	}
	return s, nil
}

// startPresence runs the feed until ctx is done. It is a no-op when presence
// is disabled.
func (s *session) startPresence(ctx context.Context) {
	if s.feed == nil {
		return
	}
	go func() {
		if err := s.feed.Run(ctx); err != nil {
			s.log.Warn().Err(err).Msg("presence feed stopped")
		}
	}()
}
