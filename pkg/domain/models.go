package domain

import (
	"fmt"
	"time"
)

// ConnectionState describes the link worker lifecycle state shown in the UI.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

type MessageStatus int

const (
	StatusPending MessageStatus = iota + 1
	StatusSent
	StatusRetrying
	StatusAcked
	StatusFailed
	// StatusReceived is the terminal state for inbound messages.
	StatusReceived
)

func (s MessageStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSent:
		return "sent"
	case StatusRetrying:
		return "retrying"
	case StatusAcked:
		return "acked"
	case StatusFailed:
		return "failed"
	case StatusReceived:
		return "received"
	}
	return "unknown"
}

// Symbol is the single-cell delivery indicator rendered next to a message.
func (s MessageStatus) Symbol() string {
	switch s {
	case StatusPending:
		return "…"
	case StatusSent:
		return "→"
	case StatusRetrying:
		return "↻"
	case StatusAcked:
		return "✓"
	case StatusFailed:
		return "✗"
	}
	return " "
}

// Terminal reports whether the status can never change again.
func (s MessageStatus) Terminal() bool {
	return s == StatusAcked || s == StatusFailed || s == StatusReceived
}

// CanTransition enforces the monotonic delivery state machine:
// Pending → Sent → (Retrying →) Acked | Failed. Nothing leaves a
// terminal state.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return to == StatusSent || to == StatusFailed
	case StatusSent:
		return to == StatusRetrying || to == StatusAcked || to == StatusFailed
	case StatusRetrying:
		return to == StatusSent || to == StatusAcked || to == StatusFailed
	}
	return false
}

type Position struct {
	Lat  float64
	Lon  float64
	Alt  int32
	Time time.Time
}

// PacketMeta is the envelope metadata of the last packet heard from a node.
type PacketMeta struct {
	Encrypted    bool
	Channel      int
	HopLimit     int
	RxTime       time.Time
	LastPacketID uint32
}

// Node is a peer on the mesh. Num is the stable unique key. Position and
// Meta stay nil until an update actually carries them; later updates that
// lack those fields must not erase them.
type Node struct {
	Num       uint32
	Name      string
	LastHeard time.Time
	SNR       float64
	Position  *Position
	Meta      *PacketMeta
}

// DisplayName returns the node's name, falling back to the hex id form
// used throughout the mesh ecosystem.
func (n *Node) DisplayName() string {
	if n != nil && n.Name != "" {
		return n.Name
	}
	if n == nil {
		return "Unknown"
	}
	return FormatNodeID(n.Num)
}

// FormatNodeID renders a node number in the conventional !hex form.
func FormatNodeID(num uint32) string {
	return fmt.Sprintf("!%x", num)
}

// ChatMessage belongs to exactly one thread, keyed by To (BroadcastAddr
// for the public thread, the peer id for DMs). TxID is the transport
// transaction id bound once the outbound call returns; zero means unbound.
type ChatMessage struct {
	ID        int64
	From      uint32
	To        uint32
	Text      string
	CreatedAt time.Time
	Status    MessageStatus
	TxID      uint32
	System    bool
}

// IsBroadcast applies the one discrimination rule used everywhere:
// a message is broadcast iff its destination is the reserved address.
// Channel index is metadata only.
func (m *ChatMessage) IsBroadcast() bool {
	return m.To == BroadcastAddr
}

type Channel struct {
	Index int
	Name  string
}

// AckOutcome is the resolution of one tracked transaction.
type AckOutcome int

const (
	// OutcomeNone is the distinguishable "no result" value returned on
	// wait timeout. It is never stored.
	OutcomeNone AckOutcome = iota
	OutcomeAck
	OutcomeNak
)

func (o AckOutcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeNak:
		return "nak"
	}
	return "none"
}
