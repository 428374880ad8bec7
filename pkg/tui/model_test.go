package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAMS0N1TE/meshtui/pkg/config"
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/state"
)

type fakeLink struct {
	started []string
	bauds   []int
	stops   int
	traces  []uint32
	err     error
}

func (f *fakeLink) Start(target string, baud int) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, target)
	f.bauds = append(f.bauds, baud)
	return nil
}

func (f *fakeLink) Stop() { f.stops++ }

func (f *fakeLink) SendTraceroute(dest uint32) error {
	f.traces = append(f.traces, dest)
	return f.err
}

type sentReq struct {
	MsgID int64
	Dest  uint32
	Text  string
}

type fakeDeliverer struct {
	sent []sentReq
}

func (f *fakeDeliverer) SendWithAck(msgID int64, dest uint32, text string) {
	f.sent = append(f.sent, sentReq{MsgID: msgID, Dest: dest, Text: text})
}

func newTestModel(t *testing.T) (Model, *fakeLink, *fakeDeliverer) {
	t.Helper()
	cfg := &config.Config{}
	link := &fakeLink{}
	send := &fakeDeliverer{}
	m := New(Options{
		State:     state.New(),
		Bus:       events.NewBus(),
		Link:      link,
		Deliverer: send,
		Config:    cfg,
	})
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return sized.(Model), link, send
}

func keyPress(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.Msg
		switch {
		case len(k) == 1:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		case k == "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case k == "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case k == "ctrl+n":
			msg = tea.KeyMsg{Type: tea.KeyCtrlN}
		case k == "ctrl+p":
			msg = tea.KeyMsg{Type: tea.KeyCtrlP}
		case k == "ctrl+l":
			msg = tea.KeyMsg{Type: tea.KeyCtrlL}
		case k == "ctrl+t":
			msg = tea.KeyMsg{Type: tea.KeyCtrlT}
		case k == "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func typeText(m Model, text string) Model {
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(Model)
	}
	return m
}

func applyBus(m Model, evs ...events.Event) Model {
	for _, ev := range evs {
		next, _ := m.Update(busMsg{ev: ev})
		m = next.(Model)
	}
	return m
}

func connected(m Model) Model {
	return applyBus(m,
		events.OwnerInfo{Num: 0x10, LongName: "Base"},
		events.ConnectionChanged{State: domain.StateConnected, Detail: "as Base"},
		events.NodeSeen{Num: 0x2a, Name: "Alpha", LastHeard: time.Now()},
	)
}

func TestSendBroadcast(t *testing.T) {
	m, _, send := newTestModel(t)
	m = connected(m)

	m = typeText(m, "hello mesh")
	m = keyPress(m, "enter")

	require.Len(t, send.sent, 1)
	assert.Equal(t, uint32(domain.BroadcastAddr), send.sent[0].Dest)
	assert.Equal(t, "hello mesh", send.sent[0].Text)

	thread := m.st.Threads[domain.BroadcastAddr]
	last := thread[len(thread)-1]
	assert.Equal(t, "hello mesh", last.Text)
	assert.Equal(t, domain.StatusPending, last.Status)
	assert.Equal(t, last.ID, send.sent[0].MsgID)
}

func TestSendRefusedWhenDisconnected(t *testing.T) {
	m, _, send := newTestModel(t)

	m = typeText(m, "hello")
	m = keyPress(m, "enter")

	assert.Empty(t, send.sent)
	thread := m.st.Threads[domain.BroadcastAddr]
	last := thread[len(thread)-1]
	assert.True(t, last.System)
	assert.Contains(t, last.Text, "not connected")
}

func TestDMCommandRoutesToPeer(t *testing.T) {
	m, _, send := newTestModel(t)
	m = connected(m)

	m = typeText(m, "/dm Alpha")
	m = keyPress(m, "enter")
	assert.Equal(t, uint32(0x2a), m.st.DMTarget)

	m = typeText(m, "psst")
	m = keyPress(m, "enter")
	require.Len(t, send.sent, 1)
	assert.Equal(t, uint32(0x2a), send.sent[0].Dest)

	m = typeText(m, "/dm public")
	m = keyPress(m, "enter")
	assert.Equal(t, uint32(domain.BroadcastAddr), m.st.DMTarget)
}

func TestDMCommandHexID(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = connected(m)

	m = typeText(m, "/dm !2a")
	m = keyPress(m, "enter")
	assert.Equal(t, uint32(0x2a), m.st.DMTarget)
}

func TestCycleDMTarget(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = connected(m)
	m = applyBus(m, events.NodeSeen{Num: 0x2b, Name: "Bravo", LastHeard: time.Now().Add(time.Second)})

	m = keyPress(m, "ctrl+n")
	assert.NotEqual(t, uint32(domain.BroadcastAddr), m.st.DMTarget)

	m = keyPress(m, "ctrl+n", "ctrl+n")
	assert.Equal(t, uint32(domain.BroadcastAddr), m.st.DMTarget)

	m = keyPress(m, "ctrl+p")
	assert.NotEqual(t, uint32(domain.BroadcastAddr), m.st.DMTarget)
}

func TestConnectCommand(t *testing.T) {
	m, link, _ := newTestModel(t)

	m = typeText(m, "/connect /dev/ttyUSB0")
	m = keyPress(m, "enter")

	require.Len(t, link.started, 1)
	assert.Equal(t, "/dev/ttyUSB0", link.started[0])
	assert.Equal(t, domain.DefaultBaudRate, link.bauds[0])
	assert.Equal(t, "/dev/ttyUSB0", m.cfg.LastPort)
}

func TestConnectDefaultsToLastPort(t *testing.T) {
	m, link, _ := newTestModel(t)
	m.cfg.LastPort = "192.168.1.5:4403"

	m = typeText(m, "/connect")
	m = keyPress(m, "enter")

	require.Len(t, link.started, 1)
	assert.Equal(t, "192.168.1.5:4403", link.started[0])
}

func TestConnectFallsBackToScannedPort(t *testing.T) {
	m, link, _ := newTestModel(t)
	m = applyBus(m, events.PortList{Ports: []string{"/dev/ttyACM0"}})

	m = typeText(m, "/connect")
	m = keyPress(m, "enter")

	require.Len(t, link.started, 1)
	assert.Equal(t, "/dev/ttyACM0", link.started[0])
}

func TestTraceCommand(t *testing.T) {
	m, link, _ := newTestModel(t)
	m = connected(m)

	m = typeText(m, "/trace Alpha")
	m = keyPress(m, "enter")

	require.Len(t, link.traces, 1)
	assert.Equal(t, uint32(0x2a), link.traces[0])
}

func TestTraceRequiresConnection(t *testing.T) {
	m, link, _ := newTestModel(t)

	m = typeText(m, "/trace Alpha")
	m = keyPress(m, "enter")

	assert.Empty(t, link.traces)
}

func TestMapModeKeys(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = connected(m)

	m = typeText(m, "/map")
	m = keyPress(m, "enter")
	assert.True(t, m.mapMode)

	zoom := m.st.Map.Zoom
	m = keyPress(m, "+")
	assert.Equal(t, zoom+1, m.st.Map.Zoom)
	m = keyPress(m, "-")
	assert.Equal(t, zoom, m.st.Map.Zoom)

	x := m.st.Map.CursorX
	m = keyPress(m, "l")
	assert.Equal(t, x+1, m.st.Map.CursorX)

	m = keyPress(m, "esc")
	assert.False(t, m.mapMode)
}

func TestMapModeSwallowsTyping(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = typeText(m, "/map")
	m = keyPress(m, "enter")

	m = keyPress(m, "x")
	assert.Empty(t, m.input.Value())
}

func TestThemeCycleAndSelect(t *testing.T) {
	m, _, _ := newTestModel(t)
	start := m.theme().Name

	m = keyPress(m, "ctrl+t")
	assert.NotEqual(t, start, m.theme().Name)
	assert.Equal(t, m.theme().Name, m.cfg.Theme)

	m = typeText(m, "/theme green")
	m = keyPress(m, "enter")
	assert.Equal(t, "green", m.theme().Name)
	assert.Equal(t, "green", m.cfg.Theme)
}

func TestUnknownCommandReportsHelp(t *testing.T) {
	m, _, _ := newTestModel(t)

	m = typeText(m, "/bogus")
	m = keyPress(m, "enter")

	thread := m.st.Threads[domain.BroadcastAddr]
	last := thread[len(thread)-1]
	assert.Contains(t, last.Text, "unknown command")
}

func TestQuitStopsLinkAndPersistsMapConfig(t *testing.T) {
	m, link, _ := newTestModel(t)
	m = applyBus(m, events.MapCommand{Op: events.MapCyclePalette})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)

	require.NotNil(t, cmd)
	assert.Equal(t, 1, link.stops)
	assert.Equal(t, m.st.Map.Palette, m.cfg.Map.Palette)
}

func TestViewShowsConnectionAndNodes(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = connected(m)
	m = applyBus(m, events.InboundText{
		From: 0x2a, To: domain.BroadcastAddr, Text: "ping", RxTime: time.Now(),
	})

	out := m.View()
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "ping")
}

func TestViewShowsConnectHint(t *testing.T) {
	m, _, _ := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "disconnected")
}

func TestBusEventsReachReducer(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = applyBus(m,
		events.SystemLog{Text: "mqtt up"},
		events.PortList{Ports: []string{"/dev/ttyUSB1"}},
	)
	assert.Equal(t, []string{"/dev/ttyUSB1"}, m.st.Ports)
	require.NotEmpty(t, m.st.Log)
	assert.True(t, strings.Contains(m.st.Log[len(m.st.Log)-1], "mqtt up"))
}

func TestBusClosedQuits(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(busClosedMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
