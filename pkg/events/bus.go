package events

import "sync"

// Bus is a multi-producer, single-consumer event queue. Emit never blocks
// the producer: events queue in an unbounded buffer and a pump goroutine
// hands them to the consumer channel in order. Per-producer emission order
// is preserved; interleaving between producers is whatever the scheduler
// gives us, which the reducer's merge semantics tolerate.
type Bus struct {
	mu      sync.Mutex
	queue   []Event
	wake    chan struct{}
	out     chan Event
	once    sync.Once
	closed  bool
	closeCh chan struct{}
}

func NewBus() *Bus {
	return &Bus{
		wake:    make(chan struct{}, 1),
		out:     make(chan Event),
		closeCh: make(chan struct{}),
	}
}

// Emit enqueues the event. Safe from any goroutine; never blocks.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Listen returns the consumer channel, starting the pump on first call.
// The bus is built for exactly one long-lived consumer.
func (b *Bus) Listen() <-chan Event {
	b.once.Do(func() {
		go b.pump()
	})
	return b.out
}

func (b *Bus) pump() {
	for {
		b.mu.Lock()
		batch := b.queue
		b.queue = nil
		b.mu.Unlock()

		for _, ev := range batch {
			select {
			case b.out <- ev:
			case <-b.closeCh:
				return
			}
		}

		select {
		case <-b.wake:
		case <-b.closeCh:
			return
		}
	}
}

// Close stops delivery. Emits after Close are dropped.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.closeCh)
}
