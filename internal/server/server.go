// Package server is the chatline development backend: a small fiber app that
// serves the REST routes and presence socket the client talks to, backed by
// the sqlite store in internal/db.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/db"
	"github.com/tOgg1/chatline/internal/logging"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	localsPresenceUser     = "presenceUser"
)

// Config configures a Server.
type Config struct {
	Listen          string
	DB              *db.DB
	Logger          *zerolog.Logger
	ShutdownTimeout time.Duration
}

// Server wires the fiber app to the store and presence hub.
type Server struct {
	app      *fiber.App
	users    *db.UserRepository
	messages *db.MessageRepository
	hub      *Hub
	metrics  *Metrics
	log      zerolog.Logger

	listen          string
	shutdownTimeout time.Duration
}

// New builds the app and registers every route.
func New(cfg Config) (*Server, error) {
	if cfg.DB == nil {
		return nil, errors.New("server: database required")
	}
	log := logging.Component("server")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	metrics := NewMetrics()
	s := &Server{
		users:           db.NewUserRepository(cfg.DB),
		messages:        db.NewMessageRepository(cfg.DB),
		hub:             NewHub(log, metrics),
		metrics:         metrics,
		log:             log,
		listen:          strings.TrimSpace(cfg.Listen),
		shutdownTimeout: timeout,
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "chatline-dev",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(s.logRequests)
	s.app.Use(s.metrics.Middleware())

	s.app.Get("/metrics", s.metrics.Handler())
	s.app.Get("/allMessages", s.requireAuth, s.handleAllMessages)

	auth := s.app.Group("/api", s.requireAuth)
	auth.Get("/auth/check", s.handleCheckAuth)
	auth.Get("/messages/users", s.handleUsers)
	auth.Get("/messages/:id", s.handleConversation)
	auth.Post("/messages/send/:id", s.handleSend)

	s.app.Use("/ws", s.upgradePresence)
	s.app.Get("/ws", websocket.New(func(conn *websocket.Conn) {
		id, _ := conn.Locals(localsPresenceUser).(chat.UserID)
		s.hub.Serve(id, conn)
	}))
}

// upgradePresence admits websocket upgrades from an authenticated user. The
// socket's identity comes from the bearer token, never from the query.
func (s *Server) upgradePresence(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	user, err := s.authenticate(c)
	if err != nil {
		return err
	}
	if err := checkClaimedUser(c, user.ID); err != nil {
		return err
	}
	c.Locals(localsPresenceUser, user.ID)
	return c.Next()
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		Msg("request")
	return err
}

// App returns the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the presence hub.
func (s *Server) Hub() *Hub { return s.hub }

// Metrics returns the metrics collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.listen == "" {
		return errors.New("server: listen address required")
	}
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info().Str("addr", ln.Addr().String()).Msg("development backend listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.app.Listener(ln); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.hub.Close()
		err := s.app.ShutdownWithTimeout(s.shutdownTimeout)
		// Shutdown only closes listeners the app already registered.
		_ = ln.Close()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	err := g.Wait()
	s.log.Info().Msg("development backend stopped")
	return err
}
