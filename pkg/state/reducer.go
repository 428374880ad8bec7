package state

import (
	"fmt"
	"strings"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
)

// Apply folds one event into the snapshot. It is total: every recognized
// event kind is handled, anything else is a forward-compatible no-op.
// Apply must only run on the single bus-consumer goroutine.
func (s *State) Apply(ev events.Event) {
	switch e := ev.(type) {
	case events.NodeSeen:
		s.UpsertNode(e.Num, e.Name, e.LastHeard, e.SNR, e.Position)

	case events.RosterSnapshot:
		for _, n := range e.Nodes {
			s.UpsertNode(n.Num, n.Name, n.LastHeard, n.SNR, n.Position)
		}

	case events.OwnerInfo:
		s.MyNum = e.Num
		name := e.LongName
		if name == "" {
			name = e.ShortName
		}
		s.UpsertNode(e.Num, name, s.LastRx, 0, nil)
		s.AddLog(fmt.Sprintf("Owner: %s / %s", e.LongName, e.ShortName))

	case events.ConnectionChanged:
		s.applyConnection(e)

	case events.InboundText:
		s.AddInbound(e.From, e.To, e.Text, e.RxTime)

	case events.DeliveryUpdate:
		if e.TxID != 0 {
			s.BindTx(e.MsgID, e.TxID)
		}
		if e.MsgID != 0 {
			s.SetStatusByMsgID(e.MsgID, e.Status)
		} else if e.TxID != 0 {
			// Resolution arrived with only the transport id; unknown
			// ids are a no-op, not an error.
			s.SetStatusByTxID(e.TxID, e.Status)
		}

	case events.PositionUpdate:
		s.SetPosition(e.Num, e.Position)

	case events.PacketMeta:
		s.ApplyMeta(e.From, domain.PacketMeta{
			Encrypted:    e.Encrypted,
			Channel:      e.Channel,
			HopLimit:     e.HopLimit,
			RxTime:       e.RxTime,
			LastPacketID: e.PacketID,
		}, e.SNR)

	case events.TracerouteResult:
		s.AddSystem(s.formatTraceroute(e))

	case events.ChannelList:
		s.Channels = append([]domain.Channel(nil), e.Items...)
		names := make([]string, 0, len(e.Items))
		for _, ch := range e.Items {
			names = append(names, fmt.Sprintf("%d:%s", ch.Index, ch.Name))
		}
		if len(names) > 0 {
			s.AddLog("Channels: " + strings.Join(names, ", "))
		}

	case events.PortList:
		s.Ports = append([]string(nil), e.Ports...)
		if len(e.Ports) > 0 {
			s.AddLog("Ports: " + strings.Join(e.Ports, ", "))
		} else {
			s.AddLog("Ports: none")
		}

	case events.SystemLog:
		s.AddLog(e.Text)

	case events.MapCommand:
		s.applyMapCommand(e)
	}
}

func (s *State) applyConnection(e events.ConnectionChanged) {
	prev := s.Conn
	s.Conn = e.State
	s.ConnDetail = e.Detail
	s.ConnErr = e.Err

	switch e.State {
	case domain.StateDisconnected:
		if prev != domain.StateDisconnected {
			s.ClearRoster()
		}
		if e.Err != nil {
			s.AddLog(fmt.Sprintf("Connection failed: %v", e.Err))
			s.AddSystem(e.Err.Hint())
		} else if e.Detail != "" {
			s.AddLog("Disconnected: " + e.Detail)
		} else {
			s.AddLog("Disconnected")
		}
	case domain.StateConnecting:
		s.AddLog("Connecting: " + e.Detail)
	case domain.StateConnected:
		s.AddLog("Connected: " + e.Detail)
	}
}

func (s *State) formatTraceroute(e events.TracerouteResult) string {
	parts := []string{s.NodeName(e.From)}
	for _, hop := range e.Route {
		parts = append(parts, s.NodeName(hop))
	}
	parts = append(parts, s.NodeName(e.To))
	return fmt.Sprintf("Traceroute from %s: %s", s.NodeName(e.From), strings.Join(parts, " --> "))
}

func (s *State) applyMapCommand(e events.MapCommand) {
	switch e.Op {
	case events.MapZoomIn:
		s.ZoomIn()
	case events.MapZoomOut:
		s.ZoomOut()
	case events.MapCursorUp:
		s.MoveCursor(0, -1)
	case events.MapCursorDown:
		s.MoveCursor(0, 1)
	case events.MapCursorLeft:
		s.MoveCursor(-1, 0)
	case events.MapCursorRight:
		s.MoveCursor(1, 0)
	case events.MapCenterOnCursor:
		s.CenterOnCursor()
	case events.MapCenterOnNode:
		s.CenterOnNode(e.Node)
	case events.MapRecenterAll:
		s.RecenterAll()
	case events.MapCyclePalette:
		s.CyclePalette()
	case events.MapCycleSource:
		s.CycleSource()
	}
}
