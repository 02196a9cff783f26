// Package eventbus fans alarm events out to any number of subscribers.
//
// It replaces single-slot callback registries: push-token refreshes,
// notification actions and fired alarms are published once and delivered
// to every current subscriber.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/oshokin/alarmee/internal/domain/alarm"
)

// Type identifies the kind of an Event.
type Type string

const (
	// TypeAlarmFired is published when an alarm notification is posted.
	TypeAlarmFired Type = "alarm.fired"
	// TypeNotificationAction is published when a user taps a notification action.
	TypeNotificationAction Type = "notification.action"
	// TypePushToken is published when the push provider issues a new token.
	TypePushToken Type = "push.token"
)

// defaultBuffer is used when Subscribe is called with a non-positive buffer.
const defaultBuffer = 16

// Event is a small in-memory signal.
type Event struct {
	Type Type      `json:"type"`
	Time time.Time `json:"time"`
	// AlarmID is set for alarm and action events.
	AlarmID string `json:"alarm_id,omitempty"`
	// ActionID is set for notification actions.
	ActionID string `json:"action_id,omitempty"`
	// Token is set for push token events.
	Token string `json:"token,omitempty"`
	// Notification is set for fired alarms.
	Notification *domain.Notification `json:"notification,omitempty"`
}

// Bus publishes events to subscribers.
//
// Publish never blocks. Subscribers get buffered channels; a subscriber that
// falls behind loses events instead of stalling the publisher.
type Bus interface {
	Publish(e Event)
	Subscribe(buffer int, types ...Type) (ch <-chan Event, unsubscribe func())
}

// subscription is one registered consumer.
type subscription struct {
	ch    chan Event
	types map[Type]struct{}
	// mu serializes sends with close.
	mu     sync.Mutex
	closed bool
}

// wants reports whether the subscription filters in t.
func (s *subscription) wants(t Type) bool {
	if len(s.types) == 0 {
		return true
	}

	_, ok := s.types[t]

	return ok
}

// deliver attempts a non-blocking send and reports whether the event was queued.
func (s *subscription) deliver(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// close closes the channel once.
func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// MemoryBus is the in-process Bus implementation.
type MemoryBus struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscription
	seq     atomic.Uint64
	dropped atomic.Uint64
	now     func() time.Time
}

// New returns an empty in-memory bus. It owns no goroutines.
func New() *MemoryBus {
	return &MemoryBus{
		subs: make(map[uint64]*subscription),
		now:  time.Now,
	}
}

// Publish delivers e to every matching subscriber without blocking.
func (b *MemoryBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	// Snapshot so Publish never holds the registry lock while sending.
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.wants(e.Type) {
			continue
		}

		if !s.deliver(e) {
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a consumer for the given types (all types when none are given).
func (b *MemoryBus) Subscribe(buffer int, types ...Type) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	s := &subscription{
		ch:    make(chan Event, buffer),
		types: make(map[Type]struct{}, len(types)),
	}

	for _, t := range types {
		s.types[t] = struct{}{}
	}

	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = s
	b.mu.Unlock()

	var once sync.Once

	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()

			s.close()
		})
	}

	return s.ch, unsubscribe
}

// Subscribers returns the number of registered subscriptions.
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (b *MemoryBus) Dropped() uint64 {
	return b.dropped.Load()
}
