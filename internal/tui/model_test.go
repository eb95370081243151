package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/directory"
	"github.com/tOgg1/chatline/internal/presence"
	"github.com/tOgg1/chatline/internal/selection"
)

type stubFetcher struct{ users []chat.User }

func (s stubFetcher) Users(context.Context) ([]chat.User, error) { return s.users, nil }
func (s stubFetcher) Me(context.Context) (chat.User, error) {
	return chat.User{ID: "me", FullName: "Me Myself"}, nil
}

type stubMessages []chat.Message

func (s stubMessages) Messages(context.Context, chat.UserID) ([]chat.Message, error) {
	return s, nil
}

type stubConnection struct{ status presence.Status }

func (s stubConnection) Status() presence.Status { return s.status }
func (stubConnection) Subscribe(func()) func() { return func() {} }

type fixture struct {
	model     *Model
	tracker   *presence.Tracker
	selection *selection.Store
}

func newTestModel(t *testing.T) *fixture {
	t.Helper()
	nop := zerolog.Nop()
	dir := directory.New(stubFetcher{users: []chat.User{
		{ID: "a", FullName: "Alice Archer", Email: "alice@example.com"},
		{ID: "b", FullName: "Bruno Bell", Email: "bruno@example.com"},
		{ID: "c", FullName: "Cleo Cruz", Email: "cleo@sample.org"},
	}}, directory.WithLogger(nop))
	_, err := dir.CheckAuth(context.Background())
	require.NoError(t, err)

	tracker := presence.NewTracker()
	sel, err := selection.New(selection.WithLogger(nop))
	require.NoError(t, err)

	engine, err := contacts.NewEngine(contacts.EngineConfig{
		Directory: dir,
		Presence:  tracker,
		Messages: stubMessages{
			{SenderID: "me", ReceiverID: "a"},
			{SenderID: "c", ReceiverID: "me"},
		},
		Selection: sel,
		Logger:    &nop,
	})
	require.NoError(t, err)

	model, err := NewModel(Config{
		Engine:     engine,
		Identity:   dir,
		Connection: stubConnection{status: presence.StatusConnected},
	})
	require.NoError(t, err)
	model.Start(context.Background())
	t.Cleanup(model.Close)

	require.Eventually(t, func() bool {
		view := engine.View()
		return len(view.Rows) == 2 && !view.MessagesLoading
	}, 2*time.Second, 5*time.Millisecond)
	model = applyUpdate(t, model, viewChangedMsg{})
	model = applyUpdate(t, model, tea.WindowSizeMsg{Width: 100, Height: 24})
	return &fixture{model: model, tracker: tracker, selection: sel}
}

func applyUpdate(t *testing.T, model *Model, msg tea.Msg) *Model {
	t.Helper()
	next, _ := model.Update(msg)
	out, ok := next.(*Model)
	require.True(t, ok)
	return out
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeText(t *testing.T, model *Model, text string) *Model {
	t.Helper()
	for _, r := range text {
		model = applyUpdate(t, model, runeKey(r))
	}
	return model
}

func rowIDs(m *Model) []chat.UserID {
	out := make([]chat.UserID, 0, len(m.view.Rows))
	for _, row := range m.view.Rows {
		out = append(out, row.User.ID)
	}
	return out
}

func TestNewModelRequiresEngine(t *testing.T) {
	_, err := NewModel(Config{})
	require.Error(t, err)
}

func TestViewRendersContacts(t *testing.T) {
	f := newTestModel(t)
	out := f.model.View()
	require.Contains(t, out, "Contacts")
	require.Contains(t, out, "Alice Archer")
	require.Contains(t, out, "Cleo Cruz")
	require.NotContains(t, out, "Bruno Bell")
	require.Contains(t, out, "(0 online)")
	require.Contains(t, out, "signed in as Me Myself")
	require.Contains(t, out, "presence: live")
}

func TestSearchReachesWholeDirectory(t *testing.T) {
	f := newTestModel(t)
	m := applyUpdate(t, f.model, runeKey('/'))
	require.True(t, m.searching)

	m = typeText(t, m, "bru")
	require.Equal(t, "bru", m.engine.Filter().SearchQuery)
	require.Equal(t, []chat.UserID{"b"}, rowIDs(m))

	// Keys are text while searching.
	m = typeText(t, m, "q")
	require.Equal(t, "bruq", m.engine.Filter().SearchQuery)
	require.Contains(t, m.View(), "No users to show")

	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.searching)
	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Empty(t, m.engine.Filter().SearchQuery)
	require.Equal(t, []chat.UserID{"a", "c"}, rowIDs(m))
}

func TestOnlineOnlyToggle(t *testing.T) {
	f := newTestModel(t)
	f.tracker.Set([]chat.UserID{"me", "c"})
	m := applyUpdate(t, f.model, viewChangedMsg{})
	require.Contains(t, m.View(), "(1 online)")

	m = applyUpdate(t, m, runeKey('o'))
	require.True(t, m.engine.Filter().OnlineOnly)
	require.Equal(t, []chat.UserID{"c"}, rowIDs(m))
	require.Contains(t, m.View(), "[x] Online only")

	m = applyUpdate(t, m, runeKey('o'))
	require.Equal(t, []chat.UserID{"a", "c"}, rowIDs(m))
}

func TestCursorAndSelect(t *testing.T) {
	f := newTestModel(t)
	m := applyUpdate(t, f.model, runeKey('j'))
	m = applyUpdate(t, m, runeKey('j'))
	require.Equal(t, 1, m.cursor)
	m = applyUpdate(t, m, runeKey('k'))
	m = applyUpdate(t, m, runeKey('k'))
	require.Equal(t, 0, m.cursor)

	m = applyUpdate(t, m, runeKey('G'))
	m = applyUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	id, ok := f.selection.Selected()
	require.True(t, ok)
	require.Equal(t, chat.UserID("c"), id)

	m = applyUpdate(t, m, viewChangedMsg{})
	require.Equal(t, 1, m.view.SelectedIndex())
	require.Contains(t, m.View(), "cleo@sample.org")
}

func TestQuitKeys(t *testing.T) {
	f := newTestModel(t)
	_, cmd := f.model.Update(runeKey('q'))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)

	m := applyUpdate(t, f.model, runeKey('/'))
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok = cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestWaitForUpdateDeliversEngineChanges(t *testing.T) {
	f := newTestModel(t)
	cmd := f.model.waitForUpdateCmd()
	require.NotNil(t, cmd)

	f.tracker.Set([]chat.UserID{"a"})
	msg := cmd()
	_, ok := msg.(viewChangedMsg)
	require.True(t, ok)
}

func TestHelpToggleAndNarrowLayout(t *testing.T) {
	f := newTestModel(t)
	m := applyUpdate(t, f.model, runeKey('?'))
	require.True(t, m.showHelp)
	require.Contains(t, m.View(), "esc clears search")

	m = applyUpdate(t, m, tea.WindowSizeMsg{Width: 40, Height: 12})
	out := m.View()
	require.Contains(t, out, "Contacts")
	require.NotContains(t, out, "Select a contact")
}

func TestLoadingShowsSpinnerText(t *testing.T) {
	f := newTestModel(t)
	f.model.view = contacts.View{Loading: true}
	require.Contains(t, f.model.View(), "Loading contacts")
}

func TestTextHelpers(t *testing.T) {
	require.Equal(t, "", truncateVis("hello", 0))
	require.Equal(t, "hello", truncateVis("hello", 5))
	require.Equal(t, "hel…", truncateVis("hello", 4))
	require.Equal(t, "ab  ", padVis("ab", 4))
	require.Equal(t, 0, clampInt(5, 0, -1))
	require.Equal(t, "(A)", avatarGlyph(chat.User{FullName: " alice"}))
	require.Equal(t, "(?)", avatarGlyph(chat.User{}))
	require.True(t, strings.HasPrefix(joinHeader("a", "b", "c", 20), "a"))
}
