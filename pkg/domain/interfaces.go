package domain

import "time"

// RoutingInfo is the decoded routing/ack portion of a packet. Error is
// empty or "NONE" for a positive acknowledgement.
type RoutingInfo struct {
	RequestID uint32
	Error     string
}

// Acked reports whether the routing payload acknowledges delivery.
func (r RoutingInfo) Acked() bool {
	return r.Error == "" || r.Error == "NONE"
}

// Packet is the decoded inbound packet shape handed over by the radio
// collaborator. Exactly one of Text/Position/Routing/Route is normally
// populated; the envelope fields are always present.
type Packet struct {
	ID        uint32
	From      uint32
	To        uint32
	Channel   int
	HopLimit  int
	RxTime    time.Time
	RxSNR     float64
	Encrypted bool

	Text     string
	Position *Position
	Routing  *RoutingInfo
	Route    []uint32
}

// NodeSnapshot is a single roster entry as reported by the device.
type NodeSnapshot struct {
	Num       uint32
	LongName  string
	ShortName string
	LastHeard time.Time
	SNR       float64
	Position  *Position
}

// DisplayName prefers the long name, then the short one, then !hex.
func (n NodeSnapshot) DisplayName() string {
	if n.LongName != "" {
		return n.LongName
	}
	if n.ShortName != "" {
		return n.ShortName
	}
	return FormatNodeID(n.Num)
}

// LinkCallbacks is the asynchronous feed from the radio collaborator.
// All handlers are invoked from the collaborator's own goroutines.
type LinkCallbacks struct {
	OnPacket         func(Packet)
	OnNodeUpdated    func(NodeSnapshot)
	OnConnectionLost func(reason string)
}

// SendHandle identifies an accepted outbound write. ID correlates the
// send with its eventual acknowledgement.
type SendHandle struct {
	ID uint32
}

// RadioLink is the externally supplied mesh radio client. The link worker
// is its exclusive owner; nothing else opens or closes it.
type RadioLink interface {
	Subscribe(cb LinkCallbacks)
	MyInfo() (NodeSnapshot, error)
	Nodes() []NodeSnapshot
	Channels() []Channel
	SendText(text string, dest uint32, wantAck bool) (SendHandle, error)
	SendTraceroute(dest uint32) error
	Close() error
}

// PortLister enumerates currently available local serial devices.
type PortLister func() ([]string, error)
