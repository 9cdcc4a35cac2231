package wallet

import (
	"sync"
	"time"
)

// EventType classifies a wallet/connectivity event.
type EventType string

const (
	// EventConnected / EventDisconnected track the wallet session itself.
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"

	// EventOnline / EventOffline are level-triggered network reachability
	// transitions.
	EventOnline  EventType = "online"
	EventOffline EventType = "offline"
)

// Event is a single wallet or connectivity notification.
type Event struct {
	Type EventType
	At   time.Time
}

// Notifier fans events out to subscribers. Publishing never blocks: a
// subscriber that is not draining its channel misses events rather than
// stalling the publisher.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Event)}
}

// Subscription is an explicit handle with an unsubscribe operation. The
// channel is closed on Unsubscribe.
type Subscription struct {
	C <-chan Event

	id       int
	notifier *Notifier
	once     sync.Once
}

// Subscribe registers a new subscriber.
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, 8)
	id := n.next
	n.next++
	n.subs[id] = ch
	return &Subscription{C: ch, id: id, notifier: n}
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.notifier.mu.Lock()
		defer s.notifier.mu.Unlock()
		if ch, ok := s.notifier.subs[s.id]; ok {
			delete(s.notifier.subs, s.id)
			close(ch)
		}
	})
}

// Publish delivers an event to all current subscribers.
func (n *Notifier) Publish(t EventType) {
	ev := Event{Type: t, At: time.Now()}
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
