// Package state holds the canonical application snapshot and the reducer
// that folds bus events into it. The snapshot is written only from the
// single bus-consumer context (plus the narrow optimistic-send path), so
// it needs no locking of its own.
package state

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
	"github.com/SAMS0N1TE/meshtui/pkg/maptiles"
)

// TileCache is the slice of the projector the reducer needs: map-mutating
// commands invalidate it.
type TileCache interface {
	InvalidateCache()
	SourceCount() int
}

// MapView is the parameter set selecting what the map pane shows.
type MapView struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Palette   int
	Source    int
	CursorX   int
	CursorY   int
	Width     int
	Height    int
}

// View converts to the projector's request shape.
func (m MapView) View() maptiles.View {
	return maptiles.View{
		Lat:     m.CenterLat,
		Lon:     m.CenterLon,
		Zoom:    m.Zoom,
		Palette: m.Palette,
		Source:  m.Source,
	}
}

const (
	defaultMapWidth  = 70
	defaultMapHeight = 22

	// Default view before any live position arrives: the continental US.
	defaultCenterLat = 39.8283
	defaultCenterLon = -98.5795
	defaultZoom      = 4
)

type State struct {
	Conn       domain.ConnectionState
	ConnDetail string
	ConnErr    *apperrors.ConnectError

	MyNum uint32
	Nodes map[uint32]*domain.Node

	Channels       []domain.Channel
	ActiveChannels map[int]bool

	// Threads are keyed by peer id; BroadcastAddr keys the public thread.
	Threads    map[uint32][]*domain.ChatMessage
	DMTarget   uint32 // BroadcastAddr means the public thread is open
	UnreadFrom map[uint32]bool

	Ports  []string
	Log    []string
	LastRx time.Time

	Map   MapView
	tiles TileCache

	firstPositionSeen bool
	nextMsgID         int64
	byMsgID           map[int64]*domain.ChatMessage
	byTxID            map[uint32]*domain.ChatMessage

	logger zerolog.Logger
}

func New() *State {
	s := &State{
		Conn:           domain.StateDisconnected,
		ConnDetail:     "select a port to connect",
		Nodes:          make(map[uint32]*domain.Node),
		ActiveChannels: make(map[int]bool),
		Threads:        make(map[uint32][]*domain.ChatMessage),
		DMTarget:       domain.BroadcastAddr,
		UnreadFrom:     make(map[uint32]bool),
		byMsgID:        make(map[int64]*domain.ChatMessage),
		byTxID:         make(map[uint32]*domain.ChatMessage),
		Map: MapView{
			CenterLat: defaultCenterLat,
			CenterLon: defaultCenterLon,
			Zoom:      defaultZoom,
			CursorX:   defaultMapWidth / 2,
			CursorY:   defaultMapHeight / 2,
			Width:     defaultMapWidth,
			Height:    defaultMapHeight,
		},
		logger: logger.ComponentLogger("state"),
	}
	s.AddSystem(fmt.Sprintf("Welcome to meshtui - %s", time.Now().Format("2006-01-02 15:04:05")))
	return s
}

// SetTileCache wires the projector so map commands can invalidate it.
func (s *State) SetTileCache(tc TileCache) {
	s.tiles = tc
}

func (s *State) invalidateTiles() {
	if s.tiles != nil {
		s.tiles.InvalidateCache()
	}
}

func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}

func (s *State) AddLog(text string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), sanitize(text))
	s.Log = append(s.Log, line)
	if len(s.Log) > domain.LogRingSize {
		s.Log = s.Log[len(s.Log)-domain.LogRingSize:]
	}
}

// AddSystem appends a system message to the public thread.
func (s *State) AddSystem(text string) *domain.ChatMessage {
	s.nextMsgID++
	m := &domain.ChatMessage{
		ID:        s.nextMsgID,
		To:        domain.BroadcastAddr,
		Text:      sanitize(text),
		CreatedAt: time.Now(),
		Status:    domain.StatusReceived,
		System:    true,
	}
	s.Threads[domain.BroadcastAddr] = append(s.Threads[domain.BroadcastAddr], m)
	return m
}

// AddOutgoing optimistically inserts a pending message into the thread for
// dest. This is the one write permitted outside the reducer so the UI
// reflects user intent before the network round trip.
func (s *State) AddOutgoing(dest uint32, text string) *domain.ChatMessage {
	s.nextMsgID++
	m := &domain.ChatMessage{
		ID:        s.nextMsgID,
		From:      s.MyNum,
		To:        dest,
		Text:      sanitize(text),
		CreatedAt: time.Now(),
		Status:    domain.StatusPending,
	}
	s.Threads[dest] = append(s.Threads[dest], m)
	s.byMsgID[m.ID] = m
	return m
}

// AddInbound appends a received message. DMs land in the sender's thread;
// a DM from someone other than the open thread marks that sender unread.
func (s *State) AddInbound(from, to uint32, text string, rxTime time.Time) *domain.ChatMessage {
	key := domain.BroadcastAddr
	if to != domain.BroadcastAddr {
		key = from
	}

	s.nextMsgID++
	m := &domain.ChatMessage{
		ID:        s.nextMsgID,
		From:      from,
		To:        key,
		Text:      sanitize(text),
		CreatedAt: rxTime,
		Status:    domain.StatusReceived,
	}
	s.Threads[key] = append(s.Threads[key], m)

	if key != domain.BroadcastAddr && from != s.MyNum && s.DMTarget != from {
		s.UnreadFrom[from] = true
	}
	s.LastRx = rxTime
	return m
}

// BindTx attaches the transport transaction id to a message and promotes
// it to Sent.
func (s *State) BindTx(msgID int64, txID uint32) {
	m, ok := s.byMsgID[msgID]
	if !ok {
		return
	}
	if txID != 0 {
		m.TxID = txID
		s.byTxID[txID] = m
	}
	s.setStatus(m, domain.StatusSent)
}

// SetStatusByMsgID applies a delivery transition; illegal transitions and
// unknown ids are no-ops.
func (s *State) SetStatusByMsgID(msgID int64, status domain.MessageStatus) {
	if m, ok := s.byMsgID[msgID]; ok {
		s.setStatus(m, status)
	}
}

// SetStatusByTxID resolves the transaction-bound message, if any.
func (s *State) SetStatusByTxID(txID uint32, status domain.MessageStatus) {
	if m, ok := s.byTxID[txID]; ok {
		s.setStatus(m, status)
	}
}

func (s *State) setStatus(m *domain.ChatMessage, status domain.MessageStatus) {
	if !m.Status.CanTransition(status) {
		return
	}
	m.Status = status
}

// UpsertNode merges a sighting into the roster. Fields the sighting does
// not carry are preserved from the existing record.
func (s *State) UpsertNode(num uint32, name string, lastHeard time.Time, snr float64, pos *domain.Position) {
	n, ok := s.Nodes[num]
	if !ok {
		n = &domain.Node{Num: num}
		s.Nodes[num] = n
	}
	if name != "" {
		n.Name = name
	}
	if lastHeard.After(n.LastHeard) {
		n.LastHeard = lastHeard
	}
	if snr != 0 {
		n.SNR = snr
	}
	if pos != nil {
		s.setPosition(n, *pos)
	}
}

// SetPosition upserts the node's position, creating the roster entry if
// this is the first sighting.
func (s *State) SetPosition(num uint32, pos domain.Position) {
	n, ok := s.Nodes[num]
	if !ok {
		n = &domain.Node{Num: num, LastHeard: pos.Time}
		s.Nodes[num] = n
	}
	s.setPosition(n, pos)
}

func (s *State) setPosition(n *domain.Node, pos domain.Position) {
	p := pos
	n.Position = &p
	if pos.Time.After(n.LastHeard) {
		n.LastHeard = pos.Time
	}

	// The very first live position of the session recenters the map once.
	if !s.firstPositionSeen {
		s.firstPositionSeen = true
		s.RecenterAll()
	}
}

// ApplyMeta updates the sender's envelope metadata from any packet.
func (s *State) ApplyMeta(num uint32, meta domain.PacketMeta, snr float64) {
	n, ok := s.Nodes[num]
	if !ok {
		n = &domain.Node{Num: num}
		s.Nodes[num] = n
	}
	m := meta
	n.Meta = &m
	if snr != 0 {
		n.SNR = snr
	}
	if meta.RxTime.After(n.LastHeard) {
		n.LastHeard = meta.RxTime
	}
}

// ClearRoster wipes every node and our own identity. Bound transactions
// stay: in-flight sends still resolve against their messages.
func (s *State) ClearRoster() {
	s.Nodes = make(map[uint32]*domain.Node)
	s.MyNum = 0
}

// OrderedNodes returns the roster sorted most-recently-heard first.
func (s *State) OrderedNodes() []*domain.Node {
	out := make([]*domain.Node, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastHeard.Equal(out[j].LastHeard) {
			return out[i].LastHeard.After(out[j].LastHeard)
		}
		return out[i].DisplayName() < out[j].DisplayName()
	})
	return out
}

// NodeName resolves a node id to its display name, with the !hex fallback.
func (s *State) NodeName(num uint32) string {
	if n, ok := s.Nodes[num]; ok {
		return n.DisplayName()
	}
	return domain.FormatNodeID(num)
}

// SelectDM opens the DM thread with peer (BroadcastAddr reopens the
// public thread) and clears the unread mark.
func (s *State) SelectDM(peer uint32) {
	s.DMTarget = peer
	if peer != domain.BroadcastAddr {
		delete(s.UnreadFrom, peer)
	}
}

// CurrentThread returns the messages of the open thread.
func (s *State) CurrentThread() []*domain.ChatMessage {
	return s.Threads[s.DMTarget]
}

// PositionedNodes lists roster entries with a known position.
func (s *State) PositionedNodes() []*domain.Node {
	var out []*domain.Node
	for _, n := range s.Nodes {
		if n.Position != nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Num < out[j].Num })
	return out
}

// Markers projects the positioned roster into the projector's shape.
func (s *State) Markers() []maptiles.Marker {
	nodes := s.PositionedNodes()
	out := make([]maptiles.Marker, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, maptiles.Marker{
			Num:  n.Num,
			Lat:  n.Position.Lat,
			Lon:  n.Position.Lon,
			Self: n.Num == s.MyNum && s.MyNum != 0,
		})
	}
	return out
}
