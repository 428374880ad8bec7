package main

import (
	"io"
	"net"

	"go.bug.st/serial"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/link"
)

// newRadioLink adapts an open transport stream into a mesh protocol
// client. The framing layer is an external collaborator; when none is
// linked in, dialing validates the transport and then reports the radio
// as unavailable so the worker degrades instead of crashing.
var newRadioLink func(stream io.ReadWriteCloser) (domain.RadioLink, error)

func radioDialer() link.Dialer {
	return func(t link.Target) (domain.RadioLink, error) {
		stream, err := openTransport(t)
		if err != nil {
			return nil, err
		}
		if newRadioLink == nil {
			stream.Close()
			return nil, link.ErrUnavailable
		}
		radio, err := newRadioLink(stream)
		if err != nil {
			stream.Close()
			return nil, err
		}
		return radio, nil
	}
}

// openTransport opens the raw device connection. Failures here carry the
// OS-level detail the connect classifier keys on.
func openTransport(t link.Target) (io.ReadWriteCloser, error) {
	if t.Kind == link.TargetTCP {
		return net.DialTimeout("tcp", t.Addr, domain.DefaultConnectTimeout)
	}
	return serial.Open(t.Addr, &serial.Mode{BaudRate: t.Baud})
}
