// Package events defines the typed event variants flowing over the bus and
// the bus itself. Every asynchronous producer (link worker, port scanner,
// MQTT listener, delivery coordinator) converts its vendor-shaped input
// into one of these variants at the boundary; the rest of the program only
// ever sees typed events.
package events

import (
	"time"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
)

// Event is the sealed union of everything the reducer consumes.
type Event interface {
	isEvent()
}

// NodeSeen is a single-node sighting: an announcement, a node-updated
// callback, or one entry of a roster snapshot.
type NodeSeen struct {
	Num       uint32
	Name      string
	LastHeard time.Time
	SNR       float64
	Position  *domain.Position
}

// RosterSnapshot is the device's full node table, pushed once after
// connection establishment.
type RosterSnapshot struct {
	Nodes []NodeSeen
}

// OwnerInfo announces our own identity on the mesh.
type OwnerInfo struct {
	Num       uint32
	LongName  string
	ShortName string
}

// ConnectionChanged reports a lifecycle transition of the link worker.
// Err is non-nil only for failed connect attempts.
type ConnectionChanged struct {
	State  domain.ConnectionState
	Detail string
	Err    *apperrors.ConnectError
}

// InboundText is a received chat message, broadcast or directed.
type InboundText struct {
	From    uint32
	To      uint32
	Text    string
	Channel int
	RxTime  time.Time
}

// PositionUpdate carries a decoded position payload.
type PositionUpdate struct {
	Num      uint32
	Position domain.Position
}

// PacketMeta is the envelope of any inbound packet, applied to the
// sender's roster entry regardless of payload type.
type PacketMeta struct {
	From      uint32
	Encrypted bool
	Channel   int
	HopLimit  int
	RxTime    time.Time
	SNR       float64
	PacketID  uint32
}

// DeliveryUpdate moves an outbound message through its status machine.
// TxID is non-zero on the transition that binds the transport id.
type DeliveryUpdate struct {
	MsgID  int64
	Status domain.MessageStatus
	TxID   uint32
}

// TracerouteResult is a decoded route reply: the ordered hop ids between
// the two endpoints.
type TracerouteResult struct {
	From  uint32
	To    uint32
	Route []uint32
}

// ChannelList replaces the channel table wholesale.
type ChannelList struct {
	Items []domain.Channel
}

// PortList is the current set of local serial devices, emitted only when
// the set changes.
type PortList struct {
	Ports []string
}

// SystemLog is an informational line for the log pane (MQTT traffic,
// decode failures, remediation hints).
type SystemLog struct {
	Text string
}

// MapOp enumerates the map-mutating commands handled by the reducer.
type MapOp int

const (
	MapZoomIn MapOp = iota + 1
	MapZoomOut
	MapCursorUp
	MapCursorDown
	MapCursorLeft
	MapCursorRight
	MapCenterOnCursor
	MapCenterOnNode
	MapRecenterAll
	MapCyclePalette
	MapCycleSource
)

// MapCommand mutates the map view state. Node is used by MapCenterOnNode.
type MapCommand struct {
	Op   MapOp
	Node uint32
}

func (NodeSeen) isEvent()          {}
func (RosterSnapshot) isEvent()    {}
func (OwnerInfo) isEvent()         {}
func (ConnectionChanged) isEvent() {}
func (InboundText) isEvent()       {}
func (PositionUpdate) isEvent()    {}
func (PacketMeta) isEvent()        {}
func (DeliveryUpdate) isEvent()    {}
func (TracerouteResult) isEvent()  {}
func (ChannelList) isEvent()       {}
func (PortList) isEvent()          {}
func (SystemLog) isEvent()         {}
func (MapCommand) isEvent()        {}
