package event

import (
	"slices"
	"strconv"
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/Iron-Ham/initiative/internal/logging"
)

// Handler receives a published event.
type Handler func(Event)

// wildcard keys handlers registered with SubscribeAll.
const wildcard = "*"

type handlerEntry struct {
	id string
	fn Handler
}

// Bus is a synchronous pub/sub bus. Publish runs handlers on the calling
// goroutine: handlers for the event's type first, then wildcard handlers,
// each group in registration order.
type Bus struct {
	mu     sync.RWMutex
	byType map[string][]handlerEntry
	owner  map[string]string // subscription id -> event type
	seq    uint64
	logger *logging.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger that reports recovered handler panics.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus returns an empty bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		byType: make(map[string][]handlerEntry),
		owner:  make(map[string]string),
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers handler for eventType and returns an id for Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	id := "sub-" + strconv.FormatUint(b.seq, 10)
	b.byType[eventType] = append(b.byType[eventType], handlerEntry{id: id, fn: handler})
	b.owner[id] = eventType
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(wildcard, handler)
}

// Unsubscribe removes a subscription. It reports whether id was registered.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventType, ok := b.owner[id]
	if !ok {
		return false
	}
	delete(b.owner, id)

	// Replace rather than edit in place: Publish may be iterating the old slice.
	b.byType[eventType] = slices.DeleteFunc(slices.Clone(b.byType[eventType]), func(h handlerEntry) bool {
		return h.id == id
	})
	if len(b.byType[eventType]) == 0 {
		delete(b.byType, eventType)
	}
	return true
}

// Publish delivers e to its subscribers. A panicking handler is recovered
// and logged; the remaining handlers still run.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	specific := b.byType[e.EventType()]
	all := b.byType[wildcard]
	b.mu.RUnlock()

	for _, h := range specific {
		b.deliver(h.fn, e)
	}
	for _, h := range all {
		b.deliver(h.fn, e)
	}
}

func (b *Bus) deliver(fn Handler, e Event) {
	var catcher panics.Catcher
	catcher.Try(func() { fn(e) })
	if r := catcher.Recovered(); r != nil {
		b.logger.Error("event handler panicked",
			"event_type", e.EventType(),
			"panic", r.String(),
		)
	}
}

// Clear drops every subscription.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byType = make(map[string][]handlerEntry)
	b.owner = make(map[string]string)
}

// SubscriptionCount reports the number of registered handlers.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.owner)
}
