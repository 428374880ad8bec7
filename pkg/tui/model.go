// Package tui is the terminal front end. The bubbletea update loop is the
// single consumer of the event bus: every event is folded into the state
// snapshot here, so the reducer never needs a lock.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/config"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
	"github.com/SAMS0N1TE/meshtui/pkg/maptiles"
	"github.com/SAMS0N1TE/meshtui/pkg/metrics"
	"github.com/SAMS0N1TE/meshtui/pkg/state"
)

// Link is the connection control surface the UI needs from the worker.
type Link interface {
	Start(target string, baud int) error
	Stop()
	SendTraceroute(dest uint32) error
}

// Deliverer runs outbound sends off the UI loop.
type Deliverer interface {
	SendWithAck(msgID int64, dest uint32, text string)
}

// busMsg wraps one bus event for the update loop.
type busMsg struct {
	ev events.Event
}

type busClosedMsg struct{}

// waitBus delivers exactly one event and is re-armed after each delivery.
func waitBus(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return busClosedMsg{}
		}
		return busMsg{ev: ev}
	}
}

type Options struct {
	State     *state.State
	Bus       *events.Bus
	Link      Link
	Deliverer Deliverer
	Projector *maptiles.Projector
	Metrics   *metrics.Collector
	Config    *config.Config
}

type Model struct {
	st    *state.State
	busCh <-chan events.Event
	link  Link
	send  Deliverer
	proj  *maptiles.Projector
	meter *metrics.Collector
	cfg   *config.Config

	input textinput.Model
	chat  viewport.Model

	width    int
	height   int
	themeIdx int
	mapMode  bool
	showLog  bool

	quitting bool
	logger   zerolog.Logger
}

func New(o Options) Model {
	input := textinput.New()
	input.Placeholder = "message, or /help"
	input.Prompt = "> "
	input.CharLimit = 230
	input.Focus()

	m := Model{
		st:     o.State,
		busCh:  o.Bus.Listen(),
		link:   o.Link,
		send:   o.Deliverer,
		proj:   o.Projector,
		meter:  o.Metrics,
		cfg:    o.Config,
		input:  input,
		chat:   viewport.New(0, 0),
		logger: logger.ComponentLogger("tui"),
	}
	if o.Config != nil {
		m.themeIdx = themeIndex(o.Config.Theme)
		m.st.Map.Palette = o.Config.Map.Palette
		m.st.Map.Source = o.Config.Map.Source
	}
	return m
}

func themeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func (m Model) theme() Theme {
	return Themes[m.themeIdx%len(Themes)]
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitBus(m.busCh), textinput.Blink)
}
