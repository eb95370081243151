// Package selection holds the active contact and optionally remembers it
// between sessions.
package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/events"
	"github.com/tOgg1/chatline/internal/logging"
)

const stateVersion = 1

type stateFile struct {
	Version    int         `json:"version"`
	SelectedID chat.UserID `json:"selected_user_id,omitempty"`
	UpdatedAt  time.Time   `json:"updated_at,omitempty"`
}

// Store is the selected-contact slot. The id is a weak reference: it may name
// a user the directory no longer lists.
type Store struct {
	path string
	log  zerolog.Logger
	now  func() time.Time
	pub  events.Publisher

	mu       sync.RWMutex
	selected chat.UserID

	// saveMu orders state file writes; each write persists the value current
	// when it starts, so the last write always holds the latest selection.
	saveMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithStatePath persists the selection to path.
func WithStatePath(path string) Option {
	return func(s *Store) { s.path = path }
}

// WithLogger overrides the component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New returns a store. When a state path is configured the previous selection
// is restored; a missing file is not an error.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		log: logging.Component("selection"),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.path == "" {
		return s, nil
	}
	state, err := load(s.path)
	if err != nil {
		return s, fmt.Errorf("load selection state: %w", err)
	}
	if chat.ValidateUserID(state.SelectedID) == nil {
		s.selected = state.SelectedID
	}
	return s, nil
}

// Select makes id the active contact. Selecting the current id is a no-op.
func (s *Store) Select(id chat.UserID) {
	s.set(id)
}

// Clear drops the selection.
func (s *Store) Clear() {
	s.set("")
}

// Selected returns the active contact id.
func (s *Store) Selected() (chat.UserID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != ""
}

// Subscribe registers fn for selection changes.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	return s.pub.OnChange(fn)
}

// Path returns the state file path, or "" when not persisted.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) set(id chat.UserID) {
	s.mu.Lock()
	if s.selected == id {
		s.mu.Unlock()
		return
	}
	s.selected = id
	s.mu.Unlock()

	s.persist()
	s.pub.Publish(events.Event{Kind: events.KindSelection, Subject: id})
}

func (s *Store) persist() {
	if s.path == "" {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	state := stateFile{Version: stateVersion, SelectedID: s.selected, UpdatedAt: s.now()}
	s.mu.RUnlock()

	if err := save(s.path, state); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("persist selection failed")
	}
}

func load(path string) (stateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stateFile{}, nil
		}
		return stateFile{}, err
	}
	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return stateFile{}, err
	}
	if state.Version > stateVersion {
		return stateFile{}, fmt.Errorf("unsupported state version %d", state.Version)
	}
	return state, nil
}

func save(path string, state stateFile) error {
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
