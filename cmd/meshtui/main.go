package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/SAMS0N1TE/meshtui/pkg/ack"
	"github.com/SAMS0N1TE/meshtui/pkg/config"
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/link"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
	"github.com/SAMS0N1TE/meshtui/pkg/maptiles"
	"github.com/SAMS0N1TE/meshtui/pkg/metrics"
	"github.com/SAMS0N1TE/meshtui/pkg/mqttio"
	"github.com/SAMS0N1TE/meshtui/pkg/state"
	"github.com/SAMS0N1TE/meshtui/pkg/transport"
	"github.com/SAMS0N1TE/meshtui/pkg/tui"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	target := flag.String("connect", "", "connect to this target at startup (serial path or host[:port])")
	metricsAddr := flag.String("metrics", "", "expose prometheus metrics on this address (overrides config)")
	logLevel := flag.String("log-level", "", "log level (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshtui: %v\n", err)
		os.Exit(1)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLogLevel(cfg.Logging.Level)
	if cfg.Logging.File != "" {
		// The terminal belongs to the TUI; logs go to the file or nowhere.
		f, ferr := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "meshtui: cannot open log file: %v\n", ferr)
		} else {
			defer f.Close()
			logger.SetOutput(f)
		}
	}
	log := logger.ComponentLogger("main")

	bus := events.NewBus()
	acks := ack.NewRegistry()
	st := state.New()

	proj := maptiles.NewProjector()
	st.SetTileCache(proj)

	meter := metrics.NewCollector()
	proj.SetRecorder(meter)
	addr := cfg.MetricsListen
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if srv := meter.Serve(addr); srv != nil {
		defer srv.Close()
		log.Info().Str("addr", addr).Msg("metrics listener started")
	}

	worker := link.NewWorker(bus, acks, radioDialer())
	coord := transport.NewCoordinator(bus, acks, worker)
	coord.Timeout = cfg.AckTimeout()
	coord.Retries = cfg.Ack.Retries

	scanner := link.NewPortScanner(bus, nil, domain.DefaultPortScanInterval)
	scanner.Start()
	defer scanner.Stop()

	if cfg.MQTT.Enabled {
		listener := mqttio.NewListener(mqttio.Options{
			Host: cfg.MQTT.Host,
			Port: cfg.MQTT.Port,
			TLS:  cfg.MQTT.TLS,
		}, bus)
		if err := listener.Connect(); err != nil {
			log.Warn().Err(err).Msg("mqtt listener unavailable")
			bus.Emit(events.SystemLog{Text: "MQTT unavailable: " + err.Error()})
		} else {
			defer listener.Disconnect()
		}
	}

	if *target != "" {
		if err := worker.Start(*target, cfg.Baud()); err != nil {
			bus.Emit(events.SystemLog{Text: "startup connect failed: " + err.Error()})
		}
	}

	model := tui.New(tui.Options{
		State:     st,
		Bus:       bus,
		Link:      worker,
		Deliverer: coord,
		Projector: proj,
		Metrics:   meter,
		Config:    cfg,
	})

	prog := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := prog.Run(); err != nil {
		log.Error().Err(err).Msg("tui exited with error")
	}

	worker.Stop()
	bus.Close()

	if err := cfg.Save(*configPath); err != nil {
		log.Error().Err(err).Msg("config save failed")
	}
}
