package fins

import "sync"

// EventType names an event emitted by Client.
type EventType string

const (
	EventOpen    EventType = "open"
	EventClose   EventType = "close"
	EventError   EventType = "error"
	EventTimeout EventType = "timeout"
	EventReply   EventType = "reply"
)

// Event is delivered to handlers registered with Client.On.
type Event struct {
	Type  EventType
	Host  string // target host of the client
	Reply *Reply // EventReply
	Err   error  // EventError
}

// Handler receives events. Handlers run one at a time on the client's
// dispatcher goroutine and may call back into the client, including Close.
type Handler func(Event)

// eventBus queues events and delivers them in order from one goroutine.
// Once finished it accepts nothing more; the final event is always the
// last one delivered.
type eventBus struct {
	mu       sync.Mutex
	handlers map[EventType][]Handler
	queue    []Event
	started  bool
	finished bool
	wake     chan struct{}
	done     chan struct{}

	// drop reports whether a non-final event should be discarded at
	// delivery time.
	drop func() bool
}

func newEventBus(drop func() bool) *eventBus {
	return &eventBus{
		handlers: make(map[EventType][]Handler),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		drop:     drop,
	}
}

func (b *eventBus) on(t EventType, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.handlers[t] = append(b.handlers[t], h)
	b.mu.Unlock()
}

func (b *eventBus) start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started || b.finished {
		return
	}
	b.started = true
	go b.run()
}

func (b *eventBus) publish(e Event) {
	b.mu.Lock()
	if b.finished {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, e)
	b.mu.Unlock()
	b.signal()
}

// finish queues final (if not nil) as the last event and stops the bus once
// it has been delivered.
func (b *eventBus) finish(final *Event) {
	b.mu.Lock()
	if b.finished {
		b.mu.Unlock()
		return
	}
	b.finished = true
	if final != nil {
		b.queue = append(b.queue, *final)
	}
	started := b.started
	b.mu.Unlock()

	if !started {
		close(b.done)
		return
	}
	b.signal()
}

func (b *eventBus) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *eventBus) run() {
	defer close(b.done)
	for range b.wake {
		for {
			b.mu.Lock()
			if len(b.queue) == 0 {
				finished := b.finished
				b.mu.Unlock()
				if finished {
					return
				}
				break
			}
			e := b.queue[0]
			b.queue = b.queue[1:]
			last := b.finished && len(b.queue) == 0
			handlers := append([]Handler(nil), b.handlers[e.Type]...)
			b.mu.Unlock()

			if !last && b.drop != nil && b.drop() {
				continue
			}
			for _, h := range handlers {
				h(e)
			}
		}
	}
}
