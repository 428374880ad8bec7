// Package mocks holds the shared test doubles for collaborator interfaces.
package mocks

import (
	"sync"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
)

// SentText records one SendText call made against the fake link.
type SentText struct {
	Text    string
	Dest    uint32
	WantAck bool
	TxID    uint32
}

// RadioLink is a scriptable in-memory radio. Tests configure the device
// state up front, then drive inbound traffic with the Inject helpers.
type RadioLink struct {
	mu sync.Mutex
	cb domain.LinkCallbacks

	Info        domain.NodeSnapshot
	InfoErr     error
	NodeList    []domain.NodeSnapshot
	ChannelList []domain.Channel

	SendErr       error
	TracerouteErr error
	OnSend        func(SentText)

	nextTx uint32
	sent   []SentText
	traces []uint32
	closed bool
}

func (f *RadioLink) Subscribe(cb domain.LinkCallbacks) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *RadioLink) MyInfo() (domain.NodeSnapshot, error) {
	return f.Info, f.InfoErr
}

func (f *RadioLink) Nodes() []domain.NodeSnapshot {
	return append([]domain.NodeSnapshot(nil), f.NodeList...)
}

func (f *RadioLink) Channels() []domain.Channel {
	return append([]domain.Channel(nil), f.ChannelList...)
}

func (f *RadioLink) SendText(text string, dest uint32, wantAck bool) (domain.SendHandle, error) {
	if f.SendErr != nil {
		return domain.SendHandle{}, f.SendErr
	}
	f.mu.Lock()
	f.nextTx++
	rec := SentText{Text: text, Dest: dest, WantAck: wantAck, TxID: f.nextTx}
	f.sent = append(f.sent, rec)
	hook := f.OnSend
	f.mu.Unlock()

	if hook != nil {
		hook(rec)
	}
	return domain.SendHandle{ID: rec.TxID}, nil
}

func (f *RadioLink) SendTraceroute(dest uint32) error {
	if f.TracerouteErr != nil {
		return f.TracerouteErr
	}
	f.mu.Lock()
	f.traces = append(f.traces, dest)
	f.mu.Unlock()
	return nil
}

func (f *RadioLink) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *RadioLink) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *RadioLink) Sent() []SentText {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentText(nil), f.sent...)
}

func (f *RadioLink) Traceroutes() []uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint32(nil), f.traces...)
}

// InjectPacket delivers an inbound packet through the subscribed callback,
// mimicking the collaborator's own goroutine.
func (f *RadioLink) InjectPacket(p domain.Packet) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb.OnPacket != nil {
		cb.OnPacket(p)
	}
}

// InjectNode delivers a node-updated callback.
func (f *RadioLink) InjectNode(n domain.NodeSnapshot) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb.OnNodeUpdated != nil {
		cb.OnNodeUpdated(n)
	}
}

// LoseConnection signals an unexpected link loss.
func (f *RadioLink) LoseConnection(reason string) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb.OnConnectionLost != nil {
		cb.OnConnectionLost(reason)
	}
}
