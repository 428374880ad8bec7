package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case busMsg:
		m.applyEvent(msg.ev)
		m.refreshChat()
		return m, waitBus(m.busCh)

	case busClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		if m.mapMode {
			return m.handleMapKey(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyEvent is the one place events become state. Runs only on the
// update goroutine.
func (m *Model) applyEvent(ev events.Event) {
	m.st.Apply(ev)
	if m.meter != nil {
		m.meter.Observe(ev)
		m.meter.SetNodeCount(len(m.st.Nodes))
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m.handleCommand(text)
		}
		m.sendCurrent(text)
		m.refreshChat()
		return m, nil

	case "ctrl+n":
		m.cycleDMTarget(1)
		m.refreshChat()
		return m, nil

	case "ctrl+p":
		m.cycleDMTarget(-1)
		m.refreshChat()
		return m, nil

	case "ctrl+l":
		m.showLog = !m.showLog
		return m, nil

	case "ctrl+t":
		m.cycleTheme()
		return m, nil

	case "pgup":
		m.chat.HalfViewUp()
		return m, nil

	case "pgdown":
		m.chat.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleMapKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	op := events.MapOp(0)
	switch msg.String() {
	case "up", "k":
		op = events.MapCursorUp
	case "down", "j":
		op = events.MapCursorDown
	case "left", "h":
		op = events.MapCursorLeft
	case "right", "l":
		op = events.MapCursorRight
	case "+", "=":
		op = events.MapZoomIn
	case "-", "_":
		op = events.MapZoomOut
	case "c":
		op = events.MapCenterOnCursor
	case "a":
		op = events.MapRecenterAll
	case "p":
		op = events.MapCyclePalette
	case "s":
		op = events.MapCycleSource
	case "n":
		m.centerNextNode()
		return m, nil
	case "m", "q", "esc":
		m.mapMode = false
		return m, nil
	case "ctrl+c":
		return m.quit()
	default:
		return m, nil
	}
	m.applyEvent(events.MapCommand{Op: op})
	return m, nil
}

// centerNextNode steps through the positioned roster, centering each.
func (m *Model) centerNextNode() {
	nodes := m.st.PositionedNodes()
	if len(nodes) == 0 {
		return
	}
	cur := -1
	for i, n := range nodes {
		if n.Position.Lat == m.st.Map.CenterLat && n.Position.Lon == m.st.Map.CenterLon {
			cur = i
			break
		}
	}
	next := nodes[(cur+1)%len(nodes)]
	m.applyEvent(events.MapCommand{Op: events.MapCenterOnNode, Node: next.Num})
}

func (m *Model) sendCurrent(text string) {
	if m.st.Conn != domain.StateConnected {
		m.st.AddSystem("not connected; use /connect first")
		return
	}
	dest := m.st.DMTarget
	msg := m.st.AddOutgoing(dest, text)
	m.send.SendWithAck(msg.ID, dest, text)
}

// cycleDMTarget walks public -> nodes (most recent first) -> public.
func (m *Model) cycleDMTarget(dir int) {
	nodes := m.st.OrderedNodes()
	order := []uint32{domain.BroadcastAddr}
	for _, n := range nodes {
		if n.Num != m.st.MyNum {
			order = append(order, n.Num)
		}
	}
	cur := 0
	for i, num := range order {
		if num == m.st.DMTarget {
			cur = i
			break
		}
	}
	next := (cur + dir + len(order)) % len(order)
	m.st.SelectDM(order[next])
}

func (m *Model) cycleTheme() {
	m.themeIdx = (m.themeIdx + 1) % len(Themes)
	if m.cfg != nil {
		m.cfg.Theme = Themes[m.themeIdx].Name
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.link != nil {
		m.link.Stop()
	}
	m.persistConfig()
	return m, tea.Quit
}

func (m Model) persistConfig() {
	if m.cfg == nil {
		return
	}
	m.cfg.Map.Palette = m.st.Map.Palette
	m.cfg.Map.Source = m.st.Map.Source
}
