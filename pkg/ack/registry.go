// Package ack tracks delivery acknowledgements for outbound transactions.
// Registration happens on the send path, resolution on the link worker's
// callback goroutine, and waiting on the delivery coordinator's goroutine,
// so everything here must hold up under concurrent use.
package ack

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// Result is the recorded resolution of one transaction.
type Result struct {
	Outcome domain.AckOutcome
	Origin  uint32
	At      time.Time
}

type entry struct {
	result   *Result
	resolved chan struct{}
}

// Registry is an explicit instance passed to the worker and coordinator.
// There is deliberately no package-level singleton.
type Registry struct {
	mu      sync.Mutex
	entries map[uint32]*entry
	logger  zerolog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[uint32]*entry),
		logger:  logger.ComponentLogger("ack-registry"),
	}
}

func (r *Registry) get(txID uint32) *entry {
	e, ok := r.entries[txID]
	if !ok {
		e = &entry{resolved: make(chan struct{})}
		r.entries[txID] = e
	}
	return e
}

// Register creates a pending entry for txID. Registering an id that was
// already resolved keeps the resolution (out-of-order tolerance).
func (r *Registry) Register(txID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.get(txID)
}

// SetResult resolves txID and releases any waiter. The first result wins;
// later calls for the same id are ignored. Resolving an id that was never
// registered still records the outcome.
func (r *Registry) SetResult(txID uint32, outcome domain.AckOutcome, origin uint32) {
	if outcome == domain.OutcomeNone {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.get(txID)
	if e.result != nil {
		return
	}
	e.result = &Result{Outcome: outcome, Origin: origin, At: time.Now()}
	close(e.resolved)

	r.logger.Debug().
		Uint32("tx_id", txID).
		Str("outcome", outcome.String()).
		Uint32("origin", origin).
		Msg("transaction resolved")
}

// Get returns the recorded result, or nil while still pending.
func (r *Registry) Get(txID uint32) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[txID]; ok && e.result != nil {
		res := *e.result
		return &res
	}
	return nil
}

// WaitFor blocks until txID resolves or timeout elapses. On timeout it
// returns a Result with OutcomeNone rather than an error.
func (r *Registry) WaitFor(txID uint32, timeout time.Duration) Result {
	r.mu.Lock()
	e := r.get(txID)
	if e.result != nil {
		res := *e.result
		r.mu.Unlock()
		return res
	}
	resolved := e.resolved
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-resolved:
	case <-timer.C:
		return Result{Outcome: domain.OutcomeNone}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e.result != nil {
		return *e.result
	}
	return Result{Outcome: domain.OutcomeNone}
}

// Forget drops the entry for txID. Called once the coordinator has
// consumed the result so the map does not grow with session age.
func (r *Registry) Forget(txID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, txID)
}
