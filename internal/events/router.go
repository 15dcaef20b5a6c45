package events

import (
	"sync"
)

const defaultSubscriberCapacity = 256

// Logger records drop diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}

// RouterOption customizes Router construction.
type RouterOption func(*Router)

// Router fans engine events out to subscribers over bounded channels. When a
// subscriber's buffer is full the event is dropped for that subscriber; the
// pipeline never waits on an observer.
type Router struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	sinks       []Sink
	channelSize int
	logger      Logger
	closed      bool
}

// Subscription represents an active event subscription.
type Subscription struct {
	Events <-chan Event
	cancel func()
}

// Close terminates the subscription.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewRouter constructs a router with sane defaults.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		subscribers: map[*subscriber]struct{}{},
		channelSize: defaultSubscriberCapacity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// RouterWithLogger injects a logger for drop diagnostics.
func RouterWithLogger(logger Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// RouterWithSubscriberCapacity overrides the buffered channel size per
// subscriber.
func RouterWithSubscriberCapacity(capacity int) RouterOption {
	return func(r *Router) {
		if capacity > 0 {
			r.channelSize = capacity
		}
	}
}

// AttachSink registers a synchronous sink. Sinks are invoked inline on
// Publish and must return quickly.
func (r *Router) AttachSink(sink Sink) {
	if sink == nil {
		return
	}
	r.mu.Lock()
	r.sinks = append(r.sinks, sink)
	r.mu.Unlock()
}

// Subscribe registers a channel-based consumer (the progress TUI).
func (r *Router) Subscribe() Subscription {
	sub := &subscriber{ch: make(chan Event, r.channelSize), logger: r.logger}
	r.mu.Lock()
	if r.closed {
		sub.close()
	} else {
		r.subscribers[sub] = struct{}{}
	}
	r.mu.Unlock()
	return Subscription{
		Events: sub.ch,
		cancel: func() { r.removeSubscriber(sub) },
	}
}

// Publish delivers the event to every sink and subscriber, best-effort.
func (r *Router) Publish(e Event) {
	e.Normalize()
	r.mu.RLock()
	sinks := make([]Sink, len(r.sinks))
	copy(sinks, r.sinks)
	subs := make([]*subscriber, 0, len(r.subscribers))
	for sub := range r.subscribers {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()
	for _, sink := range sinks {
		sink.HandleEvent(e)
	}
	for _, sub := range subs {
		sub.deliver(e)
	}
}

// Close detaches every subscriber and closes their channels.
func (r *Router) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	subs := make([]*subscriber, 0, len(r.subscribers))
	for sub := range r.subscribers {
		subs = append(subs, sub)
	}
	r.subscribers = map[*subscriber]struct{}{}
	r.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

func (r *Router) removeSubscriber(sub *subscriber) {
	r.mu.Lock()
	_, present := r.subscribers[sub]
	delete(r.subscribers, sub)
	r.mu.Unlock()
	if present {
		sub.close()
	}
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan Event
	logger Logger
	done   bool
}

func (s *subscriber) deliver(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	select {
	case s.ch <- e:
	default:
		if s.logger != nil {
			s.logger.Printf("events: dropped %s for unit %s (subscriber backlog full)", e.Type, e.UnitID)
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	close(s.ch)
}
