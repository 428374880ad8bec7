// Package metrics exposes operational counters for the client: traffic by
// kind, delivery outcomes, connection attempts and tile fetches. The
// collector owns its registry; an optional HTTP endpoint serves it.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

const (
	MetricPacketsTotal  = "meshtui_packets_total"
	MetricSendsTotal    = "meshtui_sends_total"
	MetricConnectsTotal = "meshtui_connects_total"
	MetricTileFetches   = "meshtui_tile_fetches_total"
	MetricNodeCount     = "meshtui_node_count"
)

type Collector struct {
	registry *prometheus.Registry
	logger   zerolog.Logger

	packetsTotal  *prometheus.CounterVec
	sendsTotal    *prometheus.CounterVec
	connectsTotal *prometheus.CounterVec
	tileFetches   *prometheus.CounterVec
	nodeCount     prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		logger:   logger.ComponentLogger("metrics"),
	}
	c.setupMetrics()
	return c
}

func (c *Collector) setupMetrics() {
	c.packetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: MetricPacketsTotal, Help: "Inbound packets by payload kind"},
		[]string{"kind"})

	c.sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: MetricSendsTotal, Help: "Outbound delivery transitions by status"},
		[]string{"status"})

	c.connectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: MetricConnectsTotal, Help: "Connection state transitions by result"},
		[]string{"result"})

	c.tileFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: MetricTileFetches, Help: "Map tile fetches by result"},
		[]string{"result"})

	c.nodeCount = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: MetricNodeCount, Help: "Nodes currently in the roster"})

	c.registry.MustRegister(
		c.packetsTotal, c.sendsTotal, c.connectsTotal, c.tileFetches, c.nodeCount,
	)
}

// Observe records the bus event. Called from the single consumer loop
// right next to the reducer, so it sees every event exactly once.
func (c *Collector) Observe(ev events.Event) {
	switch e := ev.(type) {
	case events.PacketMeta:
		c.packetsTotal.WithLabelValues("envelope").Inc()
	case events.InboundText:
		c.packetsTotal.WithLabelValues("text").Inc()
	case events.PositionUpdate:
		c.packetsTotal.WithLabelValues("position").Inc()
	case events.TracerouteResult:
		c.packetsTotal.WithLabelValues("traceroute").Inc()
	case events.DeliveryUpdate:
		c.sendsTotal.WithLabelValues(e.Status.String()).Inc()
	case events.ConnectionChanged:
		c.connectsTotal.WithLabelValues(connectResult(e)).Inc()
	}
}

func connectResult(e events.ConnectionChanged) string {
	if e.Err != nil {
		return "failed"
	}
	return string(e.State)
}

// SetNodeCount tracks the roster size after each reducer application.
func (c *Collector) SetNodeCount(n int) {
	c.nodeCount.Set(float64(n))
}

// TileFetch records one projector fetch; result is "hit", "fetched" or
// "error".
func (c *Collector) TileFetch(result string) {
	c.tileFetches.WithLabelValues(result).Inc()
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Value reads a sample back out of the registry, mainly for tests and the
// debug status line.
func (c *Collector) Value(name string, labels map[string]string) float64 {
	families, err := c.registry.Gather()
	if err != nil {
		return 0
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return extractValue(m)
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		got[l.GetName()] = l.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func extractValue(m *dto.Metric) float64 {
	if m.GetGauge() != nil {
		return m.GetGauge().GetValue()
	}
	if m.GetCounter() != nil {
		return m.GetCounter().GetValue()
	}
	return 0
}

// Serve exposes /metrics on addr. The caller shuts the returned server
// down on exit. Disabled when addr is empty.
func (c *Collector) Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	c.logger.Info().Str("addr", addr).Msg("metrics endpoint listening")
	return srv
}
