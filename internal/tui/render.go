package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/contacts"
	"github.com/tOgg1/chatline/internal/presence"
	"github.com/tOgg1/chatline/internal/tui/styles"
)

const (
	onlineDot    = "●"
	offlineDot   = " "
	emptyMessage = "No users to show"
)

func (m *Model) renderHeader() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Background)).
		Background(lipgloss.Color(m.theme.Chrome.Header)).
		Bold(true).
		Padding(0, 1)

	center := ""
	if m.identity != nil {
		if self, ok := m.identity.Self(); ok {
			center = "signed in as " + self.DisplayName()
		}
	}
	right := "presence: off"
	if m.connection != nil {
		right = "presence: " + connectionLabel(m.connection.Status())
	}
	line := joinHeader("chatline", center, right, maxInt(0, m.width-2))
	return style.Width(maxInt(0, m.width)).Render(line)
}

func (m *Model) renderFooter() string {
	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Base.Background)).
		Background(lipgloss.Color(m.theme.Chrome.Footer)).
		Padding(0, 1)

	base := "/ search  o online-only  j/k move  enter select  ? help  q quit"
	if m.searching {
		base = "type to filter  esc/enter done"
	} else if m.showHelp {
		base += "  (esc clears search, g/G jump)"
	}
	return style.Width(maxInt(0, m.width)).Render(truncateVis(base, maxInt(0, m.width-2)))
}

func (m *Model) renderSidebar(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	panel := styles.PanelStyle(m.theme, !m.searching)
	innerW := maxInt(0, width-(styles.LayoutInnerPadding*2)-2)
	innerH := maxInt(1, height-2)

	title := m.theme.Title().Render(truncateVis("Contacts", innerW))

	m.search.Width = maxInt(1, innerW-lipgloss.Width(m.search.Prompt)-1)
	searchLine := m.search.View()

	box := "[ ]"
	if m.view.Filter.OnlineOnly {
		box = "[x]"
	}
	toggle := truncateVis(fmt.Sprintf("%s Online only", box), innerW)
	count := m.theme.Muted().Render(fmt.Sprintf("(%d online)", m.view.OnlineCount))
	toggleLine := toggle + " " + count
	if lipgloss.Width(toggleLine) > innerW {
		toggleLine = toggle
	}

	divider := styles.DividerStyle(m.theme).Render(strings.Repeat("─", innerW))
	head := []string{title, searchLine, toggleLine, divider}

	var tail []string
	if m.view.Notice != "" {
		tail = append(tail, m.theme.Error().Render(truncateVis(m.view.Notice, innerW)))
	}

	listH := maxInt(1, innerH-len(head)-len(tail))
	list := m.renderRows(innerW, listH)

	parts := append(head, list)
	parts = append(parts, tail...)
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)
	return panel.Width(maxInt(0, width-2)).Height(innerH).Render(content)
}

func (m *Model) renderRows(width, maxRows int) string {
	if m.view.Loading && m.view.Empty() {
		return m.theme.Muted().Render(m.spinner.View() + " Loading contacts...")
	}
	if m.view.Empty() {
		return m.theme.Muted().Render(truncateVis(emptyMessage, width))
	}

	rows := m.view.Rows
	cursor := clampInt(m.cursor, 0, len(rows)-1)
	start := maxInt(0, cursor-maxRows/2)
	if start+maxRows > len(rows) {
		start = maxInt(0, len(rows)-maxRows)
	}

	lines := make([]string, 0, maxRows)
	for idx := start; idx < len(rows) && len(lines) < maxRows; idx++ {
		lines = append(lines, m.renderRow(rows[idx], idx == cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderRow(row contacts.Row, atCursor bool, width int) string {
	pointer := " "
	if atCursor {
		pointer = "▸"
	}
	dot := offlineDot
	label := "Offline"
	if row.Online {
		dot = onlineDot
		label = "Online"
	}

	avatar := avatarGlyph(row.User)
	labelW := len("Offline")
	nameW := maxInt(1, width-lipgloss.Width(pointer)-lipgloss.Width(avatar)-labelW-4)
	name := padVis(truncateVis(row.User.DisplayName(), nameW), nameW)

	line := fmt.Sprintf("%s%s%s %s %s",
		pointer,
		m.theme.Presence(row.Online).Render(dot),
		avatar,
		name,
		m.theme.Presence(row.Online).Render(label),
	)

	style := lipgloss.NewStyle()
	switch {
	case row.Selected:
		style = style.Foreground(lipgloss.Color(m.theme.Chrome.SelectedItem)).Bold(true).Reverse(atCursor)
	case atCursor:
		style = style.Foreground(lipgloss.Color(m.theme.Chrome.Cursor))
	}
	return style.Render(line)
}

func (m *Model) renderDetail(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	panel := styles.PanelStyle(m.theme, false)
	innerW := maxInt(0, width-(styles.LayoutInnerPadding*2)-2)
	innerH := maxInt(1, height-2)

	idx := m.view.SelectedIndex()
	if idx < 0 {
		msg := "Select a contact"
		if m.view.MessagesLoading {
			msg = "Loading conversations..."
		}
		body := m.theme.Muted().Render(truncateVis(msg, innerW))
		return panel.Width(maxInt(0, width-2)).Height(innerH).Render(body)
	}

	row := m.view.Rows[idx]
	status := m.theme.Presence(row.Online).Render("Offline")
	if row.Online {
		status = m.theme.Presence(true).Render(onlineDot + " Online")
	}
	lines := []string{
		m.theme.Title().Render(truncateVis(avatarGlyph(row.User)+" "+row.User.DisplayName(), innerW)),
		status,
		"",
		truncateVis("email:  "+row.User.Email, innerW),
		truncateVis("avatar: "+row.User.AvatarURL(), innerW),
		m.theme.Muted().Render(truncateVis("id:     "+row.User.ID.String(), innerW)),
	}
	return panel.Width(maxInt(0, width-2)).Height(innerH).Render(strings.Join(lines, "\n"))
}

// avatarGlyph stands in for the profile picture: the user's initial.
func avatarGlyph(user chat.User) string {
	for _, r := range user.DisplayName() {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return "(" + string(unicode.ToUpper(r)) + ")"
		}
	}
	return "(?)"
}

func connectionLabel(status presence.Status) string {
	switch status {
	case presence.StatusConnected:
		return "live"
	case presence.StatusConnecting:
		return "connecting"
	default:
		return "offline"
	}
}
