package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
)

const (
	minSidebarWidth = 16
	maxSidebarWidth = 40
	minMapWidth     = 20
	minMapHeight    = 5
)

// sidebarW derives the node-list width from the configured split.
func (m Model) sidebarW() int {
	frac := 0.3
	if m.cfg != nil && m.cfg.UI.SplitLeft > 0.1 && m.cfg.UI.SplitLeft < 0.9 {
		frac = m.cfg.UI.SplitLeft
	}
	w := int(float64(m.width) * frac)
	if w < minSidebarWidth {
		w = minSidebarWidth
	}
	if w > maxSidebarWidth {
		w = maxSidebarWidth
	}
	return w
}

// layout recomputes pane sizes after a resize. The map viewport tracks the
// content pane so the projector renders at the visible resolution.
func (m *Model) layout() {
	contentW := m.width - m.sidebarW() - 3
	contentH := m.height - 4
	if contentW < 1 {
		contentW = 1
	}
	if contentH < 1 {
		contentH = 1
	}

	m.chat.Width = contentW
	m.chat.Height = contentH
	m.input.Width = m.width - 4

	mw, mh := contentW, contentH
	if mw < minMapWidth {
		mw = minMapWidth
	}
	if mh < minMapHeight {
		mh = minMapHeight
	}
	m.st.SetMapSize(mw, mh)

	m.refreshChat()
}

// refreshChat rebuilds the open thread into the viewport and pins the
// bottom, matching chat expectations.
func (m *Model) refreshChat() {
	t := m.theme()
	var b strings.Builder
	for _, msg := range m.st.CurrentThread() {
		b.WriteString(m.renderMessage(t, msg))
		b.WriteByte('\n')
	}
	m.chat.SetContent(b.String())
	m.chat.GotoBottom()
}

func (m *Model) renderMessage(t Theme, msg *domain.ChatMessage) string {
	ts := t.Dim.Render(msg.CreatedAt.Format("15:04"))
	if msg.System {
		return ts + " " + t.System.Render(msg.Text)
	}

	name := m.st.NodeName(msg.From)
	style := t.Peer
	if msg.From == m.st.MyNum && m.st.MyNum != 0 {
		name = "me"
		style = t.Self
	} else if msg.From == 0 && msg.Status != domain.StatusReceived {
		// Optimistic sends inserted before the owner id is known.
		name = "me"
		style = t.Self
	}

	line := fmt.Sprintf("%s %s %s %s", ts, style.Render(name+":"), msg.Text, msg.Status.Symbol())
	return line
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width < 10 || m.height < 6 {
		return "window too small"
	}

	t := m.theme()

	header := m.renderHeader(t)
	sidebar := m.renderSidebar(t)

	var content string
	if m.mapMode {
		content = m.renderMap(t)
	} else {
		content = m.chat.View()
	}
	content = lipgloss.NewStyle().
		Width(m.width - m.sidebarW() - 3).
		Height(m.height - 4).
		MaxHeight(m.height - 4).
		Render(content)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", content)

	footer := m.input.View()
	status := m.renderStatus(t)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer, status)
}

func (m Model) renderHeader(t Theme) string {
	title := t.Header.Render("meshtui")
	thread := "public"
	if m.st.DMTarget != domain.BroadcastAddr {
		thread = "dm " + m.st.NodeName(m.st.DMTarget)
	}
	if m.mapMode {
		thread = fmt.Sprintf("map z%d", m.st.Map.Zoom)
	}
	return title + t.Dim.Render("  "+thread+"  theme:"+t.Name)
}

func (m Model) renderStatus(t Theme) string {
	var b strings.Builder
	switch m.st.Conn {
	case domain.StateConnected:
		b.WriteString(t.Status.Render("connected"))
	case domain.StateConnecting:
		b.WriteString(t.Status.Render("connecting"))
	default:
		b.WriteString(t.StatusBad.Render("disconnected"))
	}
	if m.st.ConnDetail != "" {
		b.WriteString(t.Dim.Render(" " + m.st.ConnDetail))
	}
	if m.st.ConnErr != nil {
		if hint := m.st.ConnErr.Hint(); hint != "" {
			b.WriteString(t.StatusBad.Render(" (" + hint + ")"))
		}
	}
	b.WriteString(t.Dim.Render(fmt.Sprintf("  nodes:%d", len(m.st.Nodes))))
	return b.String()
}

// renderSidebar lists the roster most-recent first, with unread marks and
// the owner tagged. ctrl+l swaps the lower half for the system log.
func (m Model) renderSidebar(t Theme) string {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	width := m.sidebarW()

	lines := []string{t.Header.Render("nodes")}
	nodes := m.st.OrderedNodes()
	limit := h - 1
	if m.showLog {
		split := 0.65
		if m.cfg != nil && m.cfg.UI.SplitNodesLog > 0.1 && m.cfg.UI.SplitNodesLog < 0.9 {
			split = m.cfg.UI.SplitNodesLog
		}
		limit = int(float64(h)*split) - 1
		if limit < 1 {
			limit = 1
		}
	}
	for i, n := range nodes {
		if i >= limit {
			break
		}
		name := n.DisplayName()
		style := t.Status
		switch {
		case n.Num == m.st.MyNum && m.st.MyNum != 0:
			name += " (me)"
			style = t.Self
		case m.st.UnreadFrom[n.Num]:
			name = "* " + name
			style = t.Unread
		case n.Num == m.st.DMTarget:
			style = t.Peer
		}
		lines = append(lines, style.Render(truncate(name, width-2)))
	}

	if m.showLog {
		lines = append(lines, t.Header.Render("log"))
		logs := m.st.Log
		room := h - len(lines)
		if room > 0 && len(logs) > room {
			logs = logs[len(logs)-room:]
		}
		for _, l := range logs {
			lines = append(lines, t.Dim.Render(truncate(l, width-2)))
		}
	}

	return t.Border.Width(width).Height(h).Render(strings.Join(lines, "\n"))
}

// renderMap asks the projector for the current grid and styles each cell
// by its class.
func (m Model) renderMap(t Theme) string {
	if m.proj == nil {
		return t.System.Render("map unavailable")
	}
	mv := m.st.Map
	grid := m.proj.Render(mv.View(), m.st.Markers(), mv.CursorX, mv.CursorY, mv.Width, mv.Height)

	var b strings.Builder
	for y, row := range grid {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, cell := range row {
			b.WriteString(t.MapStyle(cell.Class).Render(string(cell.Rune)))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if n < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
