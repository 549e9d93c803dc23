// Package events fans trigger lifecycle events out to API and TUI clients.
package events

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type Type string

const (
	TriggerReceived Type = "trigger.received"
	TriggerRejected Type = "trigger.rejected"
	TriggerIgnored  Type = "trigger.ignored"
	ActionCompleted Type = "action.completed"
	ActionFailed    Type = "action.failed"
	ScriptStarted   Type = "script.started"
	ScriptFinished  Type = "script.finished"
)

type Event struct {
	ID   int64           `json:"id"`
	Type Type            `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// TriggerData is the payload carried by every trigger and action event.
type TriggerData struct {
	TriggerID  string `json:"trigger_id"`
	ActionType string `json:"action_type,omitempty"`
	Target     string `json:"target,omitempty"`
	Status     string `json:"status,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Publisher is the producer side of a Hub.
type Publisher interface {
	Publish(t Type, data any)
}

// Filter restricts a subscription to some event types. A nil Filter passes
// everything.
type Filter map[Type]bool

// ParseFilter reads a comma-separated list of event types.
func ParseFilter(csv string) Filter {
	var f Filter
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if f == nil {
			f = Filter{}
		}
		f[Type(part)] = true
	}
	return f
}

func (f Filter) Allows(t Type) bool {
	return f == nil || f[t]
}

const subscriberBuffer = 128

type subscriber struct {
	ch     chan Event
	filter Filter
}

// Hub is an in-memory pub/sub that keeps the last events for late clients.
// Slow subscribers lose events rather than block publishers.
type Hub struct {
	mu      sync.Mutex
	lastID  int64
	recent  []Event // oldest first, at most cap(recent)
	subs    map[*subscriber]struct{}
	dropped int
}

func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 100
	}
	return &Hub{
		recent: make([]Event, 0, capacity),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Publish(t Type, data any) {
	payload := json.RawMessage("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	ev := Event{ID: h.lastID, Type: t, At: time.Now().UTC(), Data: payload}
	h.remember(ev)

	for s := range h.subs {
		if !s.filter.Allows(t) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped++
		}
	}
}

// Subscribe delivers every future event until cancel is called.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	_, ch, cancel := h.Follow(-1, nil)
	return ch, cancel
}

// Follow returns the remembered events with ID > lastID that pass filter and
// a channel carrying everything published afterwards. Nothing is lost or
// repeated between the two. A negative lastID skips the backlog.
func (h *Hub) Follow(lastID int64, filter Filter) ([]Event, <-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var backlog []Event
	if lastID >= 0 {
		for _, ev := range h.recent {
			if ev.ID > lastID && filter.Allows(ev.Type) {
				backlog = append(backlog, ev)
			}
		}
	}

	s := &subscriber{ch: make(chan Event, subscriberBuffer), filter: filter}
	h.subs[s] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			h.mu.Unlock()
			close(s.ch)
		})
	}
	return backlog, s.ch, cancel
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns the number of events discarded for full subscribers.
func (h *Hub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// SnapshotSince returns remembered events with ID > lastID, oldest first.
func (h *Hub) SnapshotSince(lastID int64) []Event {
	backlog, _, cancel := h.Follow(lastID, nil)
	cancel()
	return backlog
}

func (h *Hub) remember(ev Event) {
	if len(h.recent) == cap(h.recent) {
		copy(h.recent, h.recent[1:])
		h.recent = h.recent[:len(h.recent)-1]
	}
	h.recent = append(h.recent, ev)
}
