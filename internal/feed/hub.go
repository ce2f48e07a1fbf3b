package feed

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookshare/internal/ledger"
	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

const defaultBuffer = 16

// Event is one committed stock change as seen by subscribers.
type Event struct {
	ID    string    `json:"id"`
	Kind  string    `json:"kind"`
	ISBN  string    `json:"isbn"`
	Title string    `json:"title"`
	Stock int       `json:"stock"`
	At    time.Time `json:"at"`
}

// Hub fans ledger changes out to subscribers. A subscriber whose buffer is
// full misses events; publishing never blocks the ledger.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	closed  bool
	buffer  int
	dropped atomic.Int64

	logger logger.Logger
	now    func() time.Time
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		subs:   make(map[chan Event]struct{}),
		buffer: defaultBuffer,
		logger: log,
		now:    time.Now,
	}
}

// Publish implements ledger.Notifier.
func (h *Hub) Publish(change ledger.Change) {
	ev := Event{
		ID:    newEventID(),
		Kind:  string(change.Kind),
		ISBN:  change.Entry.ISBN,
		Title: change.Entry.Title,
		Stock: change.Entry.Stock,
		At:    h.now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
			h.logger.Debug("feed subscriber too slow, event dropped",
				logger.String("event_id", ev.ID),
				logger.String("isbn", ev.ISBN))
		}
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped for slow subscribers.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close ends every subscription. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
