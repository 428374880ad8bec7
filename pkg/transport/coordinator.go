// Package transport runs outbound delivery off the UI loop: it sends,
// binds the transport transaction id, waits for the acknowledgement and
// reports every status change back over the bus.
package transport

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/ack"
	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// Sender is the slice of the link worker the coordinator needs.
type Sender interface {
	SendText(text string, dest uint32) (uint32, error)
}

type Coordinator struct {
	bus    *events.Bus
	acks   *ack.Registry
	sender Sender
	log    zerolog.Logger

	// Timeout bounds the wait for one acknowledgement; Retries is the
	// number of additional attempts after a timed-out one.
	Timeout time.Duration
	Retries int
}

func NewCoordinator(bus *events.Bus, acks *ack.Registry, sender Sender) *Coordinator {
	return &Coordinator{
		bus:     bus,
		acks:    acks,
		sender:  sender,
		log:     logger.ComponentLogger("delivery"),
		Timeout: domain.DefaultAckTimeout,
		Retries: domain.DefaultAckRetries,
	}
}

// SendWithAck delivers the already-inserted pending message identified by
// msgID. It returns immediately; every outcome arrives as a DeliveryUpdate
// event.
func (c *Coordinator) SendWithAck(msgID int64, dest uint32, text string) {
	go c.deliver(msgID, dest, text)
}

func (c *Coordinator) deliver(msgID int64, dest uint32, text string) {
	if dest == domain.BroadcastAddr {
		if _, err := c.sender.SendText(text, dest); err != nil {
			c.log.Error().Err(err).Int64("msg_id", msgID).Msg("broadcast send failed")
			c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusFailed})
			return
		}
		// Broadcasts are never acknowledged; Sent is their final word.
		c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusSent})
		return
	}

	for attempt := 0; attempt <= c.Retries; attempt++ {
		if attempt > 0 {
			c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusRetrying})
		}

		tx, err := c.sender.SendText(text, dest)
		if err != nil {
			c.log.Error().Err(err).Int64("msg_id", msgID).Msg("send failed")
			c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusFailed})
			return
		}

		c.acks.Register(tx)
		c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusSent, TxID: tx})

		res := c.acks.WaitFor(tx, c.Timeout)
		c.acks.Forget(tx)

		switch res.Outcome {
		case domain.OutcomeAck:
			c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusAcked, TxID: tx})
			return
		case domain.OutcomeNak:
			// A NAK is a definitive routing verdict; retrying the same
			// route would fail the same way.
			c.log.Warn().Int64("msg_id", msgID).Uint32("tx_id", tx).Uint32("origin", res.Origin).Msg("delivery refused")
			c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusFailed, TxID: tx})
			return
		}
		c.log.Debug().Int64("msg_id", msgID).Uint32("tx_id", tx).Int("attempt", attempt+1).Msg("ack wait timed out")
	}

	c.bus.Emit(events.DeliveryUpdate{MsgID: msgID, Status: domain.StatusFailed})
}
