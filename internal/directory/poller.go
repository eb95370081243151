package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/logging"
)

// Poller errors.
var (
	ErrPollerAlreadyRunning = errors.New("poller already running")
	ErrPollerNotRunning     = errors.New("poller not running")
)

// DefaultPollInterval is how often the directory is refetched when no
// interval is configured.
const DefaultPollInterval = time.Minute

// Refresher is the part of Cache the poller drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Poller refreshes a directory periodically so users who sign up while the
// sidebar is open show up in search. A failed refresh keeps the previous
// listing.
type Poller struct {
	interval time.Duration
	target   Refresher
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	ticks   uint64
}

// NewPoller creates a poller for target.
func NewPoller(target Refresher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		interval: interval,
		target:   target,
		logger:   logging.Component("directory-poller"),
	}
}

// Start begins polling. The first refresh happens one interval after Start.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerAlreadyRunning
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.logger.Debug().Dur("interval", p.interval).Msg("directory poller starting")
	p.wg.Add(1)
	go p.runLoop(ctx)
	return nil
}

// Stop halts polling and waits for an in-flight refresh to finish.
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrPollerNotRunning
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug().Msg("directory poller stopped")
	return nil
}

// IsRunning reports whether the poller is running.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Ticks returns the number of refreshes attempted.
func (p *Poller) Ticks() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

func (p *Poller) runLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	p.ticks++
	p.mu.Unlock()

	if err := p.target.Refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn().Err(err).Msg("periodic directory refresh failed")
	}
}
