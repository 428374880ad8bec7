package link

import (
	"net"
	"strconv"
	"strings"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
)

type TargetKind int

const (
	TargetSerial TargetKind = iota + 1
	TargetTCP
)

// Target is a parsed connection destination: either a local serial device
// or a TCP endpoint.
type Target struct {
	Kind TargetKind
	Addr string // host:port for TCP, device path for serial
	Baud int    // serial only
}

// Describe renders the target for status lines and error messages.
func (t Target) Describe() string {
	if t.Kind == TargetTCP {
		return "tcp://" + t.Addr
	}
	return t.Addr
}

// ParseTarget decides between serial and TCP. An explicit tcp:// prefix
// always means TCP; paths and COM names always mean serial; anything else
// containing ':' or '.' is treated as a TCP host, with the default API
// port appended when none is given. Bracketed IPv6 literals are accepted
// with or without a port.
func ParseTarget(raw string, baud int) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, apperrors.NewTransportError("empty connection target", nil)
	}
	if baud <= 0 {
		baud = domain.DefaultBaudRate
	}

	if rest, ok := strings.CutPrefix(raw, "tcp://"); ok {
		return tcpTarget(rest)
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(strings.ToUpper(raw), "COM") {
		return Target{Kind: TargetSerial, Addr: raw, Baud: baud}, nil
	}
	if strings.ContainsAny(raw, ":.") || strings.HasPrefix(raw, "[") {
		return tcpTarget(raw)
	}
	return Target{Kind: TargetSerial, Addr: raw, Baud: baud}, nil
}

func tcpTarget(addr string) (Target, error) {
	if addr == "" {
		return Target{}, apperrors.NewTransportError("empty tcp host", nil)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		host := strings.Trim(addr, "[]")
		addr = net.JoinHostPort(host, strconv.Itoa(domain.DefaultTCPPort))
	}
	return Target{Kind: TargetTCP, Addr: addr}, nil
}
