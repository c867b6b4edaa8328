package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/transport"
)

// ErrSubscriptionClosed is returned by Next once a subscription is closed
// and its queue is drained.
var ErrSubscriptionClosed = errors.New("ws: subscription closed")

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// EventKind tells the two event variants apart.
type EventKind int

const (
	EventStateChanged EventKind = iota
	EventMessage
)

// Event is either a state change or a received frame.
type Event struct {
	Kind  EventKind
	State State           // set for EventStateChanged
	Frame transport.Frame // set for EventMessage
	At    time.Time
}

// IsState reports whether e is a change to s.
func (e Event) IsState(s State) bool {
	return e.Kind == EventStateChanged && e.State == s
}

func stateEvent(s State) Event {
	return Event{Kind: EventStateChanged, State: s, At: time.Now()}
}

func messageEvent(f transport.Frame) Event {
	return Event{Kind: EventMessage, Frame: f, At: time.Now()}
}

// Broadcaster fans events out to every subscriber. Each subscriber has its
// own unbounded queue so Publish never blocks.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a subscriber that sees every event published after
// this call returns. Subscribing to a closed broadcaster yields a closed
// subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{b: b, notify: make(chan struct{}, 1)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.closed = true
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Publish appends e to every subscriber's queue.
func (b *Broadcaster) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		s.push(e)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close ends every subscription. Queued events can still be drained.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.end()
		delete(b.subs, s)
	}
}

func (b *Broadcaster) remove(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is one subscriber's view of a Broadcaster.
type Subscription struct {
	b      *Broadcaster
	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
}

func (s *Subscription) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) end() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next returns the oldest queued event, waiting for one if the queue is
// empty.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			e := s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return e, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Event{}, ErrSubscriptionClosed
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close detaches the subscription and drops anything still queued.
func (s *Subscription) Close() {
	s.b.remove(s)
	s.mu.Lock()
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	s.wake()
}
