package link

import (
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// PortScanner polls the local serial devices and emits a PortList event
// whenever the set changes. The first successful poll always emits.
type PortScanner struct {
	bus      *events.Bus
	list     domain.PortLister
	interval time.Duration
	log      zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

func NewPortScanner(bus *events.Bus, list domain.PortLister, interval time.Duration) *PortScanner {
	if list == nil {
		list = serial.GetPortsList
	}
	if interval <= 0 {
		interval = domain.DefaultPortScanInterval
	}
	return &PortScanner{
		bus:      bus,
		list:     list,
		interval: interval,
		log:      logger.ComponentLogger("port-scanner"),
	}
}

func (p *PortScanner) Start() {
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop()
}

func (p *PortScanner) Stop() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop = nil
}

func (p *PortScanner) loop() {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last []string
	seeded := false

	scan := func() {
		ports, err := p.list()
		if err != nil {
			p.log.Debug().Err(err).Msg("port enumeration failed")
			return
		}
		sorted := append([]string(nil), ports...)
		sort.Strings(sorted)
		if seeded && equalPorts(sorted, last) {
			return
		}
		seeded = true
		last = sorted
		p.bus.Emit(events.PortList{Ports: append([]string(nil), sorted...)})
	}

	scan()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			scan()
		}
	}
}

func equalPorts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
