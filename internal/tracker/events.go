package tracker

import (
	"sync"
	"time"

	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/eventq"
)

// Event types published to subscribers.
const (
	EventDayUpdated    = "day.updated"
	EventDayPerfect    = "day.perfect"
	EventCommitCreated = "commit.created"
	EventCommitFailed  = "commit.failed"
)

// Event is one tracker notification for live views.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

const subscriberBuffer = 64

// hub fans events out to subscribers. A subscriber that falls behind loses
// events instead of blocking the publisher.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		if !eventq.Offer(ch, ev) {
			debug.LogKV("tracker", "subscriber lagging, event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
