// Package dispatch routes market-data ticks to the strategy workers
// registered for each instrument.
package dispatch

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/alanyoungcy/tradecore/internal/domain"
)

// Registry fans each tick out to every worker registered for its symbol.
// It is safe for concurrent use: register, unregister, and dispatch may race
// freely without observing a partially updated index.
//
// Delivery is at-most-once and best-effort. Sends are non-blocking; a full
// worker channel drops that one delivery to that one worker rather than
// stalling the dispatcher or any other consumer.
type Registry struct {
	mu       sync.RWMutex
	bySymbol map[string]map[string]chan<- domain.Tick
	symbolOf map[string]string

	dropped atomic.Int64
	logger  *slog.Logger
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		bySymbol: make(map[string]map[string]chan<- domain.Tick),
		symbolOf: make(map[string]string),
		logger:   logger.With(slog.String("component", "dispatch_registry")),
	}
}

// Register associates a worker with a symbol and its delivery channel.
// Registering an existing worker id first removes its prior symbol
// association (pruning that symbol's worker set if emptied), so re-register
// is idempotent. The symbol is case-normalized before indexing.
func (r *Registry) Register(workerID, symbol string, ch chan<- domain.Tick) {
	sym := domain.NormalizeSymbol(symbol)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.symbolOf[workerID]; ok {
		r.removeLocked(workerID, prev)
	}

	set, ok := r.bySymbol[sym]
	if !ok {
		set = make(map[string]chan<- domain.Tick)
		r.bySymbol[sym] = set
	}
	set[workerID] = ch
	r.symbolOf[workerID] = sym
}

// Unregister removes a worker from the registry. Unregistering an unknown
// id is a no-op.
func (r *Registry) Unregister(workerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sym, ok := r.symbolOf[workerID]
	if !ok {
		return
	}
	r.removeLocked(workerID, sym)
}

// removeLocked drops workerID from the symbol index, pruning the symbol's
// worker set if it empties. Caller holds r.mu.
func (r *Registry) removeLocked(workerID, symbol string) {
	if set, ok := r.bySymbol[symbol]; ok {
		delete(set, workerID)
		if len(set) == 0 {
			delete(r.bySymbol, symbol)
		}
	}
	delete(r.symbolOf, workerID)
}

// Dispatch delivers the tick to every worker registered for its symbol via
// a non-blocking send. A symbol with zero workers is a silent no-op.
func (r *Registry) Dispatch(tick domain.Tick) {
	sym := domain.NormalizeSymbol(tick.Symbol)
	tick.Symbol = sym

	r.mu.RLock()
	defer r.mu.RUnlock()

	for workerID, ch := range r.bySymbol[sym] {
		select {
		case ch <- tick:
		default:
			// Buffer full: drop this delivery for this worker only.
			r.dropped.Add(1)
			r.logger.Debug("tick dropped for slow worker",
				slog.String("worker_id", workerID),
				slog.String("symbol", sym),
			)
		}
	}
}

// WorkerIDsFor returns the ids registered for the symbol in lexical order,
// so iteration over workers is reproducible regardless of registration
// order.
func (r *Registry) WorkerIDsFor(symbol string) []string {
	sym := domain.NormalizeSymbol(symbol)

	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.bySymbol[sym]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dropped returns the total number of deliveries dropped because a worker
// channel was full.
func (r *Registry) Dropped() int64 {
	return r.dropped.Load()
}
