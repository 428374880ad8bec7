package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
)

const helpText = `commands:
  /connect [target]   serial path or host[:port], tcp:// forces TCP
  /disconnect         drop the radio link
  /dm <node|public>   open a direct thread (name or !hex id)
  /trace <node>       request a route trace
  /map                open the map pane (arrows move, +/- zoom, a frames all)
  /theme [name]       cycle or select the color theme
  /palette /source    cycle map glyphs / tile server
  /ports /channels    list serial ports / device channels
  /quit               exit`

func (m Model) handleCommand(raw string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(raw)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "/help":
		for _, line := range strings.Split(helpText, "\n") {
			m.st.AddSystem(line)
		}

	case "/connect":
		m.connect(args)

	case "/disconnect":
		if m.link != nil {
			m.link.Stop()
		}

	case "/dm":
		if len(args) == 0 {
			m.st.AddSystem("usage: /dm <node|public>")
			break
		}
		if num, ok := m.resolveNode(args[0]); ok {
			m.st.SelectDM(num)
		} else {
			m.st.AddSystem("unknown node: " + args[0])
		}

	case "/trace":
		m.traceroute(args)

	case "/map":
		m.mapMode = true

	case "/theme":
		if len(args) > 0 {
			if idx := themeIndex(args[0]); Themes[idx].Name == args[0] {
				m.themeIdx = idx
				if m.cfg != nil {
					m.cfg.Theme = args[0]
				}
				break
			}
			m.st.AddSystem("unknown theme: " + args[0])
			break
		}
		m.cycleTheme()

	case "/palette":
		m.applyEvent(events.MapCommand{Op: events.MapCyclePalette})

	case "/source":
		m.applyEvent(events.MapCommand{Op: events.MapCycleSource})

	case "/ports":
		if len(m.st.Ports) == 0 {
			m.st.AddSystem("no serial ports detected")
		} else {
			m.st.AddSystem("ports: " + strings.Join(m.st.Ports, ", "))
		}

	case "/channels":
		if len(m.st.Channels) == 0 {
			m.st.AddSystem("no channels known; connect first")
		}
		for _, ch := range m.st.Channels {
			m.st.AddSystem(fmt.Sprintf("channel %d: %s", ch.Index, ch.Name))
		}

	case "/quit":
		return m.quit()

	default:
		m.st.AddSystem("unknown command " + cmd + "; try /help")
	}

	m.refreshChat()
	return m, nil
}

func (m *Model) connect(args []string) {
	target := ""
	switch {
	case len(args) > 0:
		target = args[0]
	case m.cfg != nil && m.cfg.LastPort != "":
		target = m.cfg.LastPort
	case len(m.st.Ports) > 0:
		target = m.st.Ports[0]
	}
	if target == "" {
		m.st.AddSystem("no target; plug a radio in or use /connect <host>")
		return
	}
	if m.link == nil {
		m.st.AddSystem("radio support is not available in this build")
		return
	}

	baud := domain.DefaultBaudRate
	if m.cfg != nil {
		baud = m.cfg.Baud()
	}
	if err := m.link.Start(target, baud); err != nil {
		m.st.AddSystem("connect failed: " + err.Error())
		return
	}
	if m.cfg != nil {
		m.cfg.LastPort = target
	}
}

func (m *Model) traceroute(args []string) {
	if len(args) == 0 {
		m.st.AddSystem("usage: /trace <node>")
		return
	}
	if m.st.Conn != domain.StateConnected || m.link == nil {
		m.st.AddSystem("not connected; use /connect first")
		return
	}
	num, ok := m.resolveNode(args[0])
	if !ok || num == domain.BroadcastAddr {
		m.st.AddSystem("unknown node: " + args[0])
		return
	}
	if err := m.link.SendTraceroute(num); err != nil {
		m.st.AddSystem("traceroute failed: " + err.Error())
		return
	}
	m.st.AddSystem("traceroute sent to " + m.st.NodeName(num))
}

// resolveNode accepts "public", a !hex id, or a case-insensitive name.
func (m *Model) resolveNode(arg string) (uint32, bool) {
	switch strings.ToLower(arg) {
	case "public", "all", "broadcast":
		return domain.BroadcastAddr, true
	}
	if strings.HasPrefix(arg, "!") {
		if v, err := strconv.ParseUint(arg[1:], 16, 32); err == nil {
			return uint32(v), true
		}
		return 0, false
	}
	for _, n := range m.st.OrderedNodes() {
		if strings.EqualFold(n.DisplayName(), arg) {
			return n.Num, true
		}
	}
	return 0, false
}
