package metrics

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
)

func TestObserveCountsByKind(t *testing.T) {
	c := NewCollector()

	c.Observe(events.PacketMeta{From: 1})
	c.Observe(events.PacketMeta{From: 2})
	c.Observe(events.InboundText{From: 1, Text: "hi"})
	c.Observe(events.PositionUpdate{Num: 1})
	c.Observe(events.TracerouteResult{From: 1})

	assert.Equal(t, 2.0, c.Value(MetricPacketsTotal, map[string]string{"kind": "envelope"}))
	assert.Equal(t, 1.0, c.Value(MetricPacketsTotal, map[string]string{"kind": "text"}))
	assert.Equal(t, 1.0, c.Value(MetricPacketsTotal, map[string]string{"kind": "position"}))
	assert.Equal(t, 1.0, c.Value(MetricPacketsTotal, map[string]string{"kind": "traceroute"}))
}

func TestObserveDeliveryAndConnects(t *testing.T) {
	c := NewCollector()

	c.Observe(events.DeliveryUpdate{Status: domain.StatusSent})
	c.Observe(events.DeliveryUpdate{Status: domain.StatusAcked})
	c.Observe(events.DeliveryUpdate{Status: domain.StatusAcked})
	c.Observe(events.ConnectionChanged{State: domain.StateConnected})
	c.Observe(events.ConnectionChanged{
		State: domain.StateDisconnected,
		Err:   apperrors.NewConnectError(apperrors.ConnectTimeout, "/dev/ttyUSB0", nil),
	})

	assert.Equal(t, 1.0, c.Value(MetricSendsTotal, map[string]string{"status": "sent"}))
	assert.Equal(t, 2.0, c.Value(MetricSendsTotal, map[string]string{"status": "acked"}))
	assert.Equal(t, 1.0, c.Value(MetricConnectsTotal, map[string]string{"result": "connected"}))
	assert.Equal(t, 1.0, c.Value(MetricConnectsTotal, map[string]string{"result": "failed"}))
}

func TestGaugesAndTileFetches(t *testing.T) {
	c := NewCollector()
	c.SetNodeCount(7)
	c.TileFetch("hit")
	c.TileFetch("error")

	assert.Equal(t, 7.0, c.Value(MetricNodeCount, nil))
	assert.Equal(t, 1.0, c.Value(MetricTileFetches, map[string]string{"result": "hit"}))
	assert.Equal(t, 1.0, c.Value(MetricTileFetches, map[string]string{"result": "error"}))
}

func TestValueUnknownMetricIsZero(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.Value("meshtui_no_such_metric", nil))
	assert.Zero(t, c.Value(MetricSendsTotal, map[string]string{"status": "nope"}))
}

func TestServeExposesRegistry(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	c := NewCollector()
	c.Observe(events.InboundText{From: 1, Text: "hi"})
	srv := c.Serve(addr)
	require.NotNil(t, srv)
	defer srv.Close()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(raw)
		return true
	}, 2*time.Second, 20*time.Millisecond)

	assert.True(t, strings.Contains(body, MetricPacketsTotal))
}

func TestServeDisabledOnEmptyAddr(t *testing.T) {
	assert.Nil(t, NewCollector().Serve(""))
}
