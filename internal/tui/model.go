// Package tui renders the contact sidebar as a bubbletea program.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/presence"
	"github.com/tOgg1/chatline/internal/tui/styles"
)

// Identity exposes the signed-in user.
type Identity interface {
	Self() (chat.User, bool)
}

// ConnectionStatus reports the presence socket state.
type ConnectionStatus interface {
	Status() presence.Status
	Subscribe(fn func()) (cancel func())
}

// Config wires the sidebar. Engine is required.
type Config struct {
	Engine       *contacts.Engine
	Identity     Identity
	Connection   ConnectionStatus
	Theme        string
	SidebarWidth int
}

type viewChangedMsg struct{}

// Model is the sidebar program state.
type Model struct {
	engine     *contacts.Engine
	identity   Identity
	connection ConnectionStatus
	theme      styles.Theme
	sidebarW   int

	ctx     context.Context
	cancel  context.CancelFunc
	updates chan struct{}
	unsubs  []func()

	view      contacts.View
	cursor    int
	searching bool
	search    textinput.Model
	spinner   spinner.Model

	width    int
	height   int
	showHelp bool
}

// NewModel validates cfg and builds an unstarted model.
func NewModel(cfg Config) (*Model, error) {
	if cfg.Engine == nil {
		return nil, errors.New("tui: contacts engine required")
	}
	width := cfg.SidebarWidth
	if width <= 0 {
		width = 34
	}

	search := textinput.New()
	search.Placeholder = "Search by name or email"
	search.Prompt = "/ "
	search.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	theme := styles.Resolve(cfg.Theme)
	spin.Style = theme.Accent()

	return &Model{
		engine:     cfg.Engine,
		identity:   cfg.Identity,
		connection: cfg.Connection,
		theme:      theme,
		sidebarW:   width,
		updates:    make(chan struct{}, 1),
		search:     search,
		spinner:    spin,
	}, nil
}

// Start mounts the engine and subscribes to its notifications. Init calls it
// when the program starts.
func (m *Model) Start(ctx context.Context) {
	if m.cancel != nil {
		return
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.unsubs = append(m.unsubs, m.engine.Subscribe(func(contacts.View) { m.signal() }))
	if m.connection != nil {
		m.unsubs = append(m.unsubs, m.connection.Subscribe(m.signal))
	}
	m.engine.Mount(m.ctx)
	m.view = m.engine.View()
}

// Close unmounts the engine and drops subscriptions.
func (m *Model) Close() {
	for _, fn := range m.unsubs {
		fn()
	}
	m.unsubs = nil
	m.engine.Unmount()
	if m.cancel != nil {
		m.cancel()
	}
}

// signal coalesces change notifications into one pending wakeup.
func (m *Model) signal() {
	select {
	case m.updates <- struct{}{}:
	default:
	}
}

func (m *Model) waitForUpdateCmd() tea.Cmd {
	if m.ctx == nil {
		return nil
	}
	updates := m.updates
	done := m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-updates:
			return viewChangedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	m.Start(context.Background())
	return tea.Batch(m.waitForUpdateCmd(), m.spinner.Tick)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case viewChangedMsg:
		m.refresh()
		return m, m.waitForUpdateCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "/":
		m.searching = true
		return m.search.Focus()
	case "esc":
		m.search.SetValue("")
		m.engine.Dispatch(contacts.ClearSearch{})
	case "o":
		m.engine.Dispatch(contacts.ToggleOnlineOnly{})
	case "j", "down":
		m.cursor++
	case "k", "up":
		m.cursor--
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = len(m.view.Rows) - 1
	case "enter":
		if row, ok := m.cursorRow(); ok {
			m.engine.Select(row.User.ID)
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	m.refresh()
	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter, tea.KeyTab:
		m.searching = false
		m.search.Blur()
		return nil
	}

	var cmd tea.Cmd
	before := m.search.Value()
	m.search, cmd = m.search.Update(msg)
	if value := m.search.Value(); value != before {
		m.engine.Dispatch(contacts.SetSearch{Query: value})
		m.cursor = 0
	}
	m.refresh()
	return cmd
}

// refresh pulls a fresh View and keeps the cursor on a row.
func (m *Model) refresh() {
	m.view = m.engine.View()
	m.cursor = clampInt(m.cursor, 0, len(m.view.Rows)-1)
}

func (m *Model) cursorRow() (contacts.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Rows) {
		return contacts.Row{}, false
	}
	return m.view.Rows[m.cursor], true
}

func (m *Model) View() string {
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyH := maxInt(0, m.height-lipgloss.Height(header)-lipgloss.Height(footer))

	cols := styles.ComputeColumns(m.width, m.sidebarW)
	sidebar := m.renderSidebar(cols.Sidebar, bodyH)
	body := sidebar
	if cols.Detail > 0 {
		gap := lipgloss.NewStyle().Width(styles.LayoutGap).Render("")
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, gap, m.renderDetail(cols.Detail, bodyH))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
