package contacts

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/logging"
)

// DirectorySource is the user directory and authenticated identity.
type DirectorySource interface {
	Refresh(ctx context.Context) error
	Users() []chat.User
	Self() (chat.User, bool)
	Loading() bool
	Subscribe(fn func()) (cancel func())
}

// PresenceSource exposes the live online set.
type PresenceSource interface {
	Online() []chat.UserID
	Subscribe(fn func()) (cancel func())
}

// MessageSource fetches the message history visible to localID.
type MessageSource interface {
	Messages(ctx context.Context, localID chat.UserID) ([]chat.Message, error)
}

// SelectionStore tracks the active contact.
type SelectionStore interface {
	Select(id chat.UserID)
	Selected() (chat.UserID, bool)
	Subscribe(fn func()) (cancel func())
}

// EngineConfig wires the engine's collaborators. Directory is required.
type EngineConfig struct {
	Directory DirectorySource
	Presence  PresenceSource
	Messages  MessageSource
	Selection SelectionStore
	Logger    *zerolog.Logger
}

// Engine keeps the sidebar's FilterState and recomputes its View whenever the
// directory, presence set, message history, selection or filter changes.
type Engine struct {
	dir       DirectorySource
	presence  PresenceSource
	messages  MessageSource
	selection SelectionStore
	log       zerolog.Logger

	mu          sync.Mutex
	mounted     bool
	generation  uint64
	cancel      context.CancelFunc
	unsubscribe []func()
	filter      FilterState
	history     []chat.Message
	historyVer  uint64
	msgLoading  bool
	notice      string

	indexVer   uint64
	indexLocal chat.UserID
	index      IDSet

	obsMu     sync.Mutex
	observers map[uint64]func(View)
	nextObs   uint64

	// One goroutine delivers at a time; notifies that arrive meanwhile set
	// pending and the deliverer sends one more, fresher View.
	fanMu      sync.Mutex
	pending    bool
	delivering bool
}

// NewEngine validates cfg and returns an unmounted engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Directory == nil {
		return nil, errors.New("contacts: directory source required")
	}
	log := logging.Component("contacts")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Engine{
		dir:       cfg.Directory,
		presence:  cfg.Presence,
		messages:  cfg.Messages,
		selection: cfg.Selection,
		log:       log,
		filter:    DefaultFilterState(),
		observers: make(map[uint64]func(View)),
	}, nil
}

// Mount resets the filter, subscribes to the stores and starts the directory
// and message fetches. It returns immediately.
func (e *Engine) Mount(ctx context.Context) {
	e.mu.Lock()
	if e.mounted {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.mounted = true
	e.generation++
	gen := e.generation
	e.cancel = cancel
	e.filter = DefaultFilterState()
	e.history = nil
	e.historyVer++
	e.msgLoading = e.messages != nil
	e.notice = ""
	e.mu.Unlock()

	unsubs := []func(){e.dir.Subscribe(e.notify)}
	if e.presence != nil {
		unsubs = append(unsubs, e.presence.Subscribe(e.notify))
	}
	if e.selection != nil {
		unsubs = append(unsubs, e.selection.Subscribe(e.notify))
	}
	e.mu.Lock()
	if e.generation == gen {
		e.unsubscribe = unsubs
		unsubs = nil
	}
	e.mu.Unlock()
	// Unmounted while subscribing.
	for _, fn := range unsubs {
		fn()
	}

	e.log.Debug().Uint64("generation", gen).Msg("contacts mounted")
	go e.refreshDirectory(ctx, gen)
	if e.messages != nil {
		go e.loadMessages(ctx, gen)
	}
	e.notify()
}

// Unmount cancels outstanding fetches and drops local state. Results that
// arrive afterwards are discarded.
func (e *Engine) Unmount() {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	e.mounted = false
	e.generation++
	cancel := e.cancel
	e.cancel = nil
	unsubs := e.unsubscribe
	e.unsubscribe = nil
	e.filter = DefaultFilterState()
	e.history = nil
	e.historyVer++
	e.msgLoading = false
	e.notice = ""
	e.index = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, fn := range unsubs {
		if fn != nil {
			fn()
		}
	}
	e.log.Debug().Msg("contacts unmounted")
}

// Mounted reports whether the engine is mounted.
func (e *Engine) Mounted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mounted
}

// Filter returns the current FilterState.
func (e *Engine) Filter() FilterState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// Dispatch applies a filter action. It never triggers a fetch. Actions on an
// unmounted engine are ignored.
func (e *Engine) Dispatch(action Action) {
	e.mu.Lock()
	if !e.mounted {
		e.mu.Unlock()
		return
	}
	next := Reduce(e.filter, action)
	changed := next != e.filter
	e.filter = next
	e.mu.Unlock()

	if changed {
		e.notify()
	}
}

// Select asks the selection store to make id the active contact.
func (e *Engine) Select(id chat.UserID) {
	if e.selection == nil || id == "" {
		return
	}
	e.selection.Select(id)
}

// View derives the render list from the current store values.
func (e *Engine) View() View {
	in := Inputs{
		Users:            e.dir.Users(),
		DirectoryLoading: e.dir.Loading(),
	}
	if self, ok := e.dir.Self(); ok {
		in.LocalID = self.ID
	}
	if e.presence != nil {
		in.Presence = NewIDSet(e.presence.Online()...)
	}
	if e.selection != nil {
		if id, ok := e.selection.Selected(); ok {
			in.Selected = id
		}
	}

	e.mu.Lock()
	state := e.filter
	in.MessagesLoading = e.msgLoading
	in.Notice = e.notice
	in.ContactIDs = e.contactIDsLocked(in.LocalID)
	e.mu.Unlock()

	return Derive(state, in)
}

// Subscribe registers fn to receive a fresh View after changes. Deliveries are
// serialized and coalesced: fn is never called concurrently, and the last View
// it receives reflects every change. fn may call back into the engine.
func (e *Engine) Subscribe(fn func(View)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	e.obsMu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.obsMu.Lock()
			delete(e.observers, id)
			e.obsMu.Unlock()
		})
	}
}

// contactIDsLocked recomputes the conversation index when the history or the
// identity changed since the last call.
func (e *Engine) contactIDsLocked(localID chat.UserID) IDSet {
	if e.index == nil || e.indexVer != e.historyVer || e.indexLocal != localID {
		e.index = ConversationIndex(e.history, localID)
		e.indexVer = e.historyVer
		e.indexLocal = localID
	}
	return e.index
}

func (e *Engine) refreshDirectory(ctx context.Context, gen uint64) {
	err := e.dir.Refresh(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}
	e.log.Warn().Err(err).Msg("directory refresh failed")
	e.setNotice(gen, "could not load users: "+err.Error())
}

func (e *Engine) loadMessages(ctx context.Context, gen uint64) {
	var localID chat.UserID
	if self, ok := e.dir.Self(); ok {
		localID = self.ID
	}
	msgs, err := e.messages.Messages(ctx, localID)

	e.mu.Lock()
	if !e.mounted || e.generation != gen || ctx.Err() != nil {
		e.mu.Unlock()
		return
	}
	e.msgLoading = false
	if err != nil {
		e.history = nil
		e.notice = "could not load messages: " + err.Error()
	} else {
		e.history = append([]chat.Message(nil), msgs...)
	}
	e.historyVer++
	e.mu.Unlock()

	if err != nil {
		e.log.Warn().Err(err).Msg("message fetch failed")
	} else {
		e.log.Debug().Int("messages", len(msgs)).Msg("message history loaded")
	}
	e.notify()
}

func (e *Engine) setNotice(gen uint64, notice string) {
	e.mu.Lock()
	if !e.mounted || e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.notice = notice
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) notify() {
	e.fanMu.Lock()
	e.pending = true
	if e.delivering {
		e.fanMu.Unlock()
		return
	}
	e.delivering = true
	for e.pending {
		e.pending = false
		e.fanMu.Unlock()
		e.deliver()
		e.fanMu.Lock()
	}
	e.delivering = false
	e.fanMu.Unlock()
}

func (e *Engine) deliver() {
	e.obsMu.Lock()
	if len(e.observers) == 0 {
		e.obsMu.Unlock()
		return
	}
	fns := make([]func(View), 0, len(e.observers))
	for _, fn := range e.observers {
		fns = append(fns, fn)
	}
	e.obsMu.Unlock()

	view := e.View()
	for _, fn := range fns {
		fn(view)
	}
}
