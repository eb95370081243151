package presence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/events"
	"github.com/tOgg1/chatline/internal/logging"
)

// FrameOnlineUsers carries the full online set.
const FrameOnlineUsers = "getOnlineUsers"

const (
	defaultReconnectInterval = 2 * time.Second
	maxFrameBytes            = 1 << 20
)

// Frame is one presence message on the socket.
type Frame struct {
	Type    string        `json:"type"`
	UserIDs []chat.UserID `json:"userIds"`
}

// Status is the connection state of a Feed.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// FeedConfig configures a Feed.
type FeedConfig struct {
	URL               string
	Header            http.Header
	ReconnectInterval time.Duration
	HTTPClient        *http.Client
	Logger            *zerolog.Logger
}

// Feed keeps a Tracker in sync with the presence socket.
type Feed struct {
	tracker  *Tracker
	url      string
	header   http.Header
	interval time.Duration
	client   *http.Client
	log      zerolog.Logger
	pub      events.Publisher

	mu      sync.RWMutex
	status  Status
	lastErr error
}

// NewFeed returns a feed that applies frames from cfg.URL to tracker.
func NewFeed(tracker *Tracker, cfg FeedConfig) (*Feed, error) {
	if tracker == nil {
		return nil, errors.New("presence: tracker required")
	}
	if cfg.URL == "" {
		return nil, errors.New("presence: url required")
	}
	interval := cfg.ReconnectInterval
	if interval <= 0 {
		interval = defaultReconnectInterval
	}
	log := logging.Component("presence")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Feed{
		tracker:  tracker,
		url:      cfg.URL,
		header:   cfg.Header,
		interval: interval,
		client:   cfg.HTTPClient,
		log:      log,
		status:   StatusDisconnected,
	}, nil
}

// Run connects and reconnects until ctx is done. The tracker is reset each
// time the connection drops.
func (f *Feed) Run(ctx context.Context) error {
	defer f.setStatus(StatusDisconnected, nil)

	for {
		if ctx.Err() != nil {
			return nil
		}

		err := f.stream(ctx)
		f.tracker.Reset()
		if ctx.Err() != nil {
			return nil
		}
		f.setStatus(StatusDisconnected, err)
		f.log.Debug().Err(err).Dur("retry_in", f.interval).Msg("presence disconnected")

		timer := time.NewTimer(f.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Status returns the current connection state.
func (f *Feed) Status() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.status
}

// Err returns the error that ended the last connection. It is cleared once a
// connection is established.
func (f *Feed) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// Subscribe registers fn for connection status changes.
func (f *Feed) Subscribe(fn func()) (cancel func()) {
	return f.pub.OnChange(fn)
}

func (f *Feed) stream(ctx context.Context) error {
	f.setStatus(StatusConnecting, f.Err())
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{
		HTTPClient: f.client,
		HTTPHeader: f.header,
	})
	if err != nil {
		return fmt.Errorf("dial presence: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	f.setStatus(StatusConnected, nil)
	f.log.Debug().Str("url", logging.RedactURL(f.url)).Msg("presence connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return ctx.Err()
			}
			return fmt.Errorf("read presence: %w", err)
		}
		f.apply(data)
	}
}

func (f *Feed) apply(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		f.log.Warn().Err(err).Msg("malformed presence frame")
		return
	}
	if frame.Type != FrameOnlineUsers {
		f.log.Debug().Str("type", frame.Type).Msg("ignoring presence frame")
		return
	}
	f.tracker.Set(frame.UserIDs)
}

func (f *Feed) setStatus(status Status, err error) {
	f.mu.Lock()
	if f.status == status && errors.Is(err, f.lastErr) {
		f.mu.Unlock()
		return
	}
	f.status = status
	f.lastErr = err
	f.mu.Unlock()
	f.pub.Publish(events.Event{Kind: events.KindPresence})
}
