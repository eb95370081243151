package styles

import "github.com/charmbracelet/lipgloss"

const (
	// LayoutGap is the space between the sidebar and the detail pane.
	LayoutGap = 1

	// LayoutInnerPadding is the default panel content padding.
	LayoutInnerPadding = 1

	minSidebarWidth = 20
	minDetailWidth  = 24
)

// Columns holds the sidebar and detail pane widths.
type Columns struct {
	Sidebar int
	Detail  int
}

// ComputeColumns splits totalWidth between the sidebar and the detail pane.
// Narrow terminals give the whole width to the sidebar.
func ComputeColumns(totalWidth, preferredSidebar int) Columns {
	if totalWidth <= 0 {
		return Columns{}
	}
	sidebar := clampInt(preferredSidebar, minSidebarWidth, totalWidth)
	detail := totalWidth - sidebar - LayoutGap
	if detail < minDetailWidth {
		return Columns{Sidebar: totalWidth}
	}
	return Columns{Sidebar: sidebar, Detail: detail}
}

// PanelStyle returns a bordered panel style.
func PanelStyle(theme Theme, focused bool) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(panelBorderStyle(theme)).
		BorderForeground(lipgloss.Color(panelBorderColor(theme, focused))).
		Padding(0, LayoutInnerPadding)
}

// DividerStyle returns the divider style between sections.
func DividerStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Borders.Divider))
}

func panelBorderColor(theme Theme, focused bool) string {
	if focused {
		return theme.Borders.ActivePane
	}
	return theme.Borders.InactivePane
}

func panelBorderStyle(theme Theme) lipgloss.Border {
	switch theme.BorderStyle {
	case "double":
		return lipgloss.DoubleBorder()
	case "sharp":
		return lipgloss.NormalBorder()
	case "hidden":
		return lipgloss.HiddenBorder()
	default:
		return lipgloss.RoundedBorder()
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return hi
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
