package link

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAMS0N1TE/meshtui/pkg/ack"
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/mocks"
)

const eventWait = 2 * time.Second

func waitFor[T events.Event](t *testing.T, ch <-chan events.Event) T {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev := <-ch:
			if v, ok := ev.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func waitForState(t *testing.T, ch <-chan events.Event, want domain.ConnectionState) events.ConnectionChanged {
	t.Helper()
	deadline := time.After(eventWait)
	for {
		select {
		case ev := <-ch:
			if cc, ok := ev.(events.ConnectionChanged); ok && cc.State == want {
				return cc
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
			return events.ConnectionChanged{}
		}
	}
}

func fastWorker(bus *events.Bus, acks *ack.Registry, dial Dialer) *Worker {
	w := NewWorker(bus, acks, dial)
	w.ReleaseGrace = 0
	w.MinBackoff = 10 * time.Millisecond
	w.MaxBackoff = 20 * time.Millisecond
	w.JoinTimeout = time.Second
	return w
}

func TestWorkerConnectSequence(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	fake := &mocks.RadioLink{
		Info: domain.NodeSnapshot{Num: 0x42, LongName: "Base Station"},
		NodeList: []domain.NodeSnapshot{
			{Num: 0x1A, LongName: "Summit", LastHeard: time.Now()},
		},
		ChannelList: []domain.Channel{{Index: 0, Name: "Primary"}},
	}
	w := fastWorker(bus, ack.NewRegistry(), func(Target) (domain.RadioLink, error) {
		return fake, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()

	connecting := waitForState(t, ch, domain.StateConnecting)
	assert.Contains(t, connecting.Detail, "/dev/ttyUSB0")

	owner := waitFor[events.OwnerInfo](t, ch)
	assert.Equal(t, uint32(0x42), owner.Num)

	chans := waitFor[events.ChannelList](t, ch)
	require.Len(t, chans.Items, 1)

	roster := waitFor[events.RosterSnapshot](t, ch)
	require.Len(t, roster.Nodes, 1)
	assert.Equal(t, "Summit", roster.Nodes[0].Name)

	connected := waitForState(t, ch, domain.StateConnected)
	assert.Contains(t, connected.Detail, "Base Station")
	assert.Equal(t, domain.StateConnected, w.State())
}

func TestWorkerNilDialerDegradesToUnavailable(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	w := fastWorker(bus, ack.NewRegistry(), nil)
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()

	waitForState(t, ch, domain.StateConnecting)
	down := waitForState(t, ch, domain.StateDisconnected)
	require.NotNil(t, down.Err)
	assert.Equal(t, apperrors.ConnectUnavailable, down.Err.Kind)

	// The supervisor keeps retrying rather than giving up.
	waitForState(t, ch, domain.StateConnecting)
}

func TestWorkerClassifiesDialFailure(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	w := fastWorker(bus, ack.NewRegistry(), func(Target) (domain.RadioLink, error) {
		return nil, os.ErrPermission
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()

	down := waitForState(t, ch, domain.StateDisconnected)
	require.NotNil(t, down.Err)
	assert.Equal(t, apperrors.ConnectPermission, down.Err.Kind)
}

func TestWorkerPacketTranslation(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	acks := ack.NewRegistry()
	fake := &mocks.RadioLink{Info: domain.NodeSnapshot{Num: 0x42, LongName: "Me"}}
	w := fastWorker(bus, acks, func(Target) (domain.RadioLink, error) {
		return fake, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()
	waitForState(t, ch, domain.StateConnected)

	rx := time.Now()

	// Routing payloads resolve the registry and never become chat.
	acks.Register(77)
	fake.InjectPacket(domain.Packet{
		ID: 1, From: 0x1A, To: 0x42, RxTime: rx,
		Routing: &domain.RoutingInfo{RequestID: 77, Error: "NONE"},
	})
	res := acks.WaitFor(77, eventWait)
	assert.Equal(t, domain.OutcomeAck, res.Outcome)
	assert.Equal(t, uint32(0x1A), res.Origin)

	fake.InjectPacket(domain.Packet{
		ID: 2, From: 0x1A, To: domain.BroadcastAddr, Channel: 1,
		HopLimit: 3, RxTime: rx, RxSNR: 6.5, Text: "hello mesh",
	})
	meta := waitFor[events.PacketMeta](t, ch)
	assert.Equal(t, uint32(0x1A), meta.From)
	text := waitFor[events.InboundText](t, ch)
	assert.Equal(t, "hello mesh", text.Text)
	assert.Equal(t, domain.BroadcastAddr, text.To)

	fake.InjectPacket(domain.Packet{
		ID: 3, From: 0x1A, RxTime: rx,
		Position: &domain.Position{Lat: 47.1, Lon: 8.2, Time: rx},
	})
	pos := waitFor[events.PositionUpdate](t, ch)
	assert.Equal(t, 47.1, pos.Position.Lat)

	fake.InjectPacket(domain.Packet{
		ID: 4, From: 0x1A, To: 0x42, RxTime: rx, Route: []uint32{0x3C},
	})
	route := waitFor[events.TracerouteResult](t, ch)
	assert.Equal(t, []uint32{0x3C}, route.Route)

	fake.InjectNode(domain.NodeSnapshot{Num: 0x2B, ShortName: "VLY", SNR: 4})
	seen := waitFor[events.NodeSeen](t, ch)
	assert.Equal(t, "VLY", seen.Name)
}

func TestWorkerNakResolvesAsNak(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	acks := ack.NewRegistry()
	fake := &mocks.RadioLink{}
	w := fastWorker(bus, acks, func(Target) (domain.RadioLink, error) {
		return fake, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()
	waitForState(t, ch, domain.StateConnected)

	fake.InjectPacket(domain.Packet{
		ID: 1, From: 0x1A, RxTime: time.Now(),
		Routing: &domain.RoutingInfo{RequestID: 88, Error: "MAX_RETRANSMIT"},
	})
	res := acks.WaitFor(88, eventWait)
	assert.Equal(t, domain.OutcomeNak, res.Outcome)
}

func TestWorkerReconnectsAfterLoss(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	var mu sync.Mutex
	dials := 0
	links := []*mocks.RadioLink{{}, {}}
	w := fastWorker(bus, ack.NewRegistry(), func(Target) (domain.RadioLink, error) {
		mu.Lock()
		defer mu.Unlock()
		l := links[dials%len(links)]
		dials++
		return l, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()
	waitForState(t, ch, domain.StateConnected)

	links[0].LoseConnection("stream closed")

	down := waitForState(t, ch, domain.StateDisconnected)
	assert.Contains(t, down.Detail, "stream closed")
	assert.True(t, links[0].Closed())

	waitForState(t, ch, domain.StateConnecting)
	waitForState(t, ch, domain.StateConnected)
	mu.Lock()
	assert.GreaterOrEqual(t, dials, 2)
	mu.Unlock()
}

func TestWorkerRestartReplacesTarget(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	var mu sync.Mutex
	var targets []string
	fakes := map[string]*mocks.RadioLink{}
	w := fastWorker(bus, ack.NewRegistry(), func(tg Target) (domain.RadioLink, error) {
		mu.Lock()
		defer mu.Unlock()
		targets = append(targets, tg.Addr)
		f := &mocks.RadioLink{}
		fakes[tg.Addr] = f
		return f, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	waitForState(t, ch, domain.StateConnected)

	require.NoError(t, w.Start("tcp://10.0.0.5", 0))
	defer w.Stop()
	waitForState(t, ch, domain.StateConnected)

	mu.Lock()
	assert.Contains(t, targets, "/dev/ttyUSB0")
	assert.Contains(t, targets, "10.0.0.5:4403")
	first := fakes["/dev/ttyUSB0"]
	mu.Unlock()
	assert.True(t, first.Closed(), "old link released on retarget")
}

func TestWorkerSendRequiresConnection(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	fake := &mocks.RadioLink{}
	w := fastWorker(bus, ack.NewRegistry(), func(Target) (domain.RadioLink, error) {
		return fake, nil
	})

	_, err := w.SendText("too early", 0x2B)
	assert.Error(t, err)
	assert.Error(t, w.SendTraceroute(0x2B))

	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	defer w.Stop()
	waitForState(t, ch, domain.StateConnected)

	tx, err := w.SendText("direct", 0x2B)
	require.NoError(t, err)
	assert.NotZero(t, tx)

	_, err = w.SendText("to everyone", domain.BroadcastAddr)
	require.NoError(t, err)

	sent := fake.Sent()
	require.Len(t, sent, 2)
	assert.True(t, sent[0].WantAck, "directed sends request an ack")
	assert.False(t, sent[1].WantAck, "broadcasts never request an ack")

	require.NoError(t, w.SendTraceroute(0x2B))
	assert.Equal(t, []uint32{0x2B}, fake.Traceroutes())
}

func TestWorkerStopIsIdempotent(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Listen()

	fake := &mocks.RadioLink{}
	w := fastWorker(bus, ack.NewRegistry(), func(Target) (domain.RadioLink, error) {
		return fake, nil
	})
	require.NoError(t, w.Start("/dev/ttyUSB0", 0))
	waitForState(t, ch, domain.StateConnected)

	w.Stop()
	down := waitForState(t, ch, domain.StateDisconnected)
	assert.Equal(t, "stopped", down.Detail)
	assert.True(t, fake.Closed())

	w.Stop()
	assert.Equal(t, domain.StateDisconnected, w.State())
}

func TestWorkerRejectsBadTarget(t *testing.T) {
	w := fastWorker(events.NewBus(), ack.NewRegistry(), nil)
	err := w.Start("", 0)
	assert.True(t, errors.As(err, new(*apperrors.AppError)))
}
