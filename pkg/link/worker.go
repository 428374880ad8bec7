// Package link owns the radio connection: one worker goroutine drives the
// connect/monitor/teardown cycle, translates collaborator callbacks into
// bus events, and resolves delivery acknowledgements. Nothing else in the
// program touches the RadioLink handle.
package link

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/ack"
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// Dialer opens a radio link to a parsed target. Serial and TCP both go
// through here so tests can substitute a fake. A nil dialer degrades every
// connect attempt to an "unavailable" failure instead of crashing.
type Dialer func(t Target) (domain.RadioLink, error)

type Worker struct {
	bus  *events.Bus
	acks *ack.Registry
	dial Dialer
	log  zerolog.Logger

	// Tunables, defaulted from the domain constants. Adjust before Start.
	ReleaseGrace time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
	JoinTimeout  time.Duration

	mu     sync.Mutex
	state  domain.ConnectionState
	link   domain.RadioLink
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(bus *events.Bus, acks *ack.Registry, dial Dialer) *Worker {
	return &Worker{
		bus:          bus,
		acks:         acks,
		dial:         dial,
		log:          logger.ComponentLogger("link-worker"),
		ReleaseGrace: domain.DeviceReleaseGrace,
		MinBackoff:   domain.MinReconnectBackoff,
		MaxBackoff:   domain.MaxReconnectBackoff,
		JoinTimeout:  domain.WorkerJoinTimeout,
		state:        domain.StateDisconnected,
	}
}

// State reports the current connection state.
func (w *Worker) State() domain.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start connects to the given target. If a worker loop is already running
// it is stopped first, so a new target replaces the old connection rather
// than racing it.
func (w *Worker) Start(raw string, baud int) error {
	t, err := ParseTarget(raw, baud)
	if err != nil {
		return err
	}
	w.stopLoop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w.mu.Lock()
	w.cancel = cancel
	w.done = done
	w.mu.Unlock()

	go w.run(ctx, t, done)
	return nil
}

// Stop tears the connection down. Idempotent; safe to call when nothing
// is running.
func (w *Worker) Stop() {
	w.stopLoop()
}

func (w *Worker) stopLoop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(w.JoinTimeout):
		w.log.Warn().Msg("worker loop did not stop within the join timeout")
	}
}

// run supervises the connection: each session attempt either ends the loop
// (explicit stop) or is retried with exponential backoff. A session that
// reached Connected resets the backoff.
func (w *Worker) run(ctx context.Context, t Target, done chan struct{}) {
	defer close(done)

	backoff := w.MinBackoff
	for {
		if w.session(ctx, t) {
			backoff = w.MinBackoff
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > w.MaxBackoff {
			backoff = w.MaxBackoff
		}
	}
}

func (w *Worker) session(ctx context.Context, t Target) bool {
	w.emitState(domain.StateConnecting, "to "+t.Describe(), nil)

	var (
		radio domain.RadioLink
		err   error
	)
	if w.dial == nil {
		err = ErrUnavailable
	} else {
		radio, err = w.dial(t)
	}
	if ctx.Err() != nil {
		if radio != nil {
			radio.Close()
		}
		w.emitState(domain.StateDisconnected, "stopped", nil)
		return false
	}
	if err != nil {
		cerr := Classify(err, t.Describe())
		w.log.Error().Err(err).
			Str("target", t.Describe()).
			Str("kind", string(cerr.Kind)).
			Msg("connect failed")
		w.emitState(domain.StateDisconnected, "", cerr)
		return false
	}

	lost := make(chan string, 1)
	radio.Subscribe(domain.LinkCallbacks{
		OnPacket:      w.handlePacket,
		OnNodeUpdated: w.handleNode,
		OnConnectionLost: func(reason string) {
			select {
			case lost <- reason:
			default:
			}
		},
	})

	w.setLink(radio)
	detail := w.pushDeviceState(radio)
	w.emitState(domain.StateConnected, detail, nil)
	w.log.Info().Str("target", t.Describe()).Msg("connected")

	var reason string
	stopped := false
	select {
	case <-ctx.Done():
		stopped = true
	case reason = <-lost:
	}

	w.setLink(nil)
	if cerr := radio.Close(); cerr != nil {
		w.log.Debug().Err(cerr).Msg("close after session")
	}
	// Let the OS release the device before the same path is reopened.
	if t.Kind == TargetSerial && w.ReleaseGrace > 0 {
		time.Sleep(w.ReleaseGrace)
	}

	if stopped {
		w.emitState(domain.StateDisconnected, "stopped", nil)
	} else {
		w.log.Warn().Str("reason", reason).Msg("link lost")
		w.emitState(domain.StateDisconnected, "link lost: "+reason, nil)
	}
	return true
}

// pushDeviceState publishes identity, channel table and roster right after
// connecting, and returns the detail string for the Connected event.
func (w *Worker) pushDeviceState(radio domain.RadioLink) string {
	detail := "ready"
	if info, err := radio.MyInfo(); err == nil {
		w.bus.Emit(events.OwnerInfo{
			Num:       info.Num,
			LongName:  info.LongName,
			ShortName: info.ShortName,
		})
		detail = "as " + info.DisplayName()
	} else {
		w.log.Warn().Err(err).Msg("device identity unavailable")
	}

	if chans := radio.Channels(); len(chans) > 0 {
		w.bus.Emit(events.ChannelList{Items: chans})
	}

	if nodes := radio.Nodes(); len(nodes) > 0 {
		seen := make([]events.NodeSeen, 0, len(nodes))
		for _, n := range nodes {
			seen = append(seen, nodeSeen(n))
		}
		w.bus.Emit(events.RosterSnapshot{Nodes: seen})
	}
	return detail
}

// SendText writes a text payload and returns the transport transaction id.
// Directed messages request an acknowledgement, broadcasts never do.
func (w *Worker) SendText(text string, dest uint32) (uint32, error) {
	radio := w.currentLink()
	if radio == nil {
		return 0, apperrors.NewTransportError("not connected", nil)
	}
	h, err := radio.SendText(text, dest, dest != domain.BroadcastAddr)
	if err != nil {
		return 0, apperrors.NewTransportError("send failed", err)
	}
	return h.ID, nil
}

// SendTraceroute requests a route trace; the reply arrives asynchronously
// through the packet callback.
func (w *Worker) SendTraceroute(dest uint32) error {
	radio := w.currentLink()
	if radio == nil {
		return apperrors.NewTransportError("not connected", nil)
	}
	if err := radio.SendTraceroute(dest); err != nil {
		return apperrors.NewTransportError("traceroute failed", err)
	}
	return nil
}

func (w *Worker) handlePacket(p domain.Packet) {
	w.bus.Emit(events.PacketMeta{
		From:      p.From,
		Encrypted: p.Encrypted,
		Channel:   p.Channel,
		HopLimit:  p.HopLimit,
		RxTime:    p.RxTime,
		SNR:       p.RxSNR,
		PacketID:  p.ID,
	})

	switch {
	case p.Routing != nil:
		// Acknowledgement traffic resolves the registry and is never
		// surfaced as chat.
		outcome := domain.OutcomeNak
		if p.Routing.Acked() {
			outcome = domain.OutcomeAck
		}
		w.acks.SetResult(p.Routing.RequestID, outcome, p.From)

	case p.Text != "":
		w.bus.Emit(events.InboundText{
			From:    p.From,
			To:      p.To,
			Text:    p.Text,
			Channel: p.Channel,
			RxTime:  p.RxTime,
		})

	case p.Position != nil:
		w.bus.Emit(events.PositionUpdate{Num: p.From, Position: *p.Position})

	case len(p.Route) > 0:
		w.bus.Emit(events.TracerouteResult{From: p.From, To: p.To, Route: p.Route})
	}
}

func (w *Worker) handleNode(n domain.NodeSnapshot) {
	w.bus.Emit(nodeSeen(n))
}

func nodeSeen(n domain.NodeSnapshot) events.NodeSeen {
	name := n.LongName
	if name == "" {
		name = n.ShortName
	}
	return events.NodeSeen{
		Num:       n.Num,
		Name:      name,
		LastHeard: n.LastHeard,
		SNR:       n.SNR,
		Position:  n.Position,
	}
}

func (w *Worker) setLink(radio domain.RadioLink) {
	w.mu.Lock()
	w.link = radio
	w.mu.Unlock()
}

func (w *Worker) currentLink() domain.RadioLink {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != domain.StateConnected {
		return nil
	}
	return w.link
}

func (w *Worker) emitState(st domain.ConnectionState, detail string, cerr *apperrors.ConnectError) {
	w.mu.Lock()
	w.state = st
	w.mu.Unlock()
	w.bus.Emit(events.ConnectionChanged{State: st, Detail: detail, Err: cerr})
}
