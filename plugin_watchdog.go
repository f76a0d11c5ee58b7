package fins

import (
	"sync"
	"time"
)

// LivenessEvent is emitted whenever the watchdog sees the controller become
// reachable or unreachable.
type LivenessEvent struct {
	Time  time.Time
	Type  EventType // EventOpen, EventReply, EventTimeout, EventError or EventClose
	Host  string
	Err   error // set for EventError
	Alive bool  // liveness state after the event
}

// LivenessStats contains snapshot metrics about controller liveness.
type LivenessStats struct {
	Open          bool
	Alive         bool
	Replies       uint64
	Timeouts      uint64
	Errors        uint64
	LastOpened    time.Time
	LastReply     time.Time
	LastTimeout   time.Time
	LastClosed    time.Time
	LastErr       error
	CurrentSilent time.Duration // time since open or last reply while no reply arrived
}

// LivenessWatchdog is a plugin that tracks replies, timeouts and errors of a
// client. Events are non-blocking; they are dropped if the channel buffer is
// full. Only the first reply after a silent period is forwarded to Events.
type LivenessWatchdog struct {
	events chan LivenessEvent

	mu sync.RWMutex

	// guarded by mu
	open        bool
	alive       bool
	replies     uint64
	timeouts    uint64
	errors      uint64
	lastOpened  time.Time
	lastReply   time.Time
	lastTimeout time.Time
	lastClosed  time.Time
	lastErr     error
}

// NewLivenessWatchdog creates a new watchdog plugin.
// eventBuffer controls the channel buffer size for Events(); use 0 for the default of 16.
func NewLivenessWatchdog(eventBuffer int) *LivenessWatchdog {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &LivenessWatchdog{
		events: make(chan LivenessEvent, eventBuffer),
	}
}

// Name implements Plugin.
func (w *LivenessWatchdog) Name() string { return "liveness_watchdog" }

// Initialize implements Plugin. It subscribes to the client's events.
func (w *LivenessWatchdog) Initialize(c *Client) error {
	c.On(EventOpen, w.onOpen)
	c.On(EventReply, w.onReply)
	c.On(EventTimeout, w.onTimeout)
	c.On(EventError, w.onError)
	c.On(EventClose, w.onClose)
	return nil
}

func (w *LivenessWatchdog) onOpen(e Event) {
	now := time.Now()
	w.mu.Lock()
	w.open = true
	w.lastOpened = now
	w.mu.Unlock()
	w.emit(LivenessEvent{Time: now, Type: EventOpen, Host: e.Host})
}

func (w *LivenessWatchdog) onReply(e Event) {
	now := time.Now()
	w.mu.Lock()
	w.replies++
	w.lastReply = now
	wasAlive := w.alive
	w.alive = true
	w.mu.Unlock()
	if !wasAlive {
		w.emit(LivenessEvent{Time: now, Type: EventReply, Host: e.Host, Alive: true})
	}
}

func (w *LivenessWatchdog) onTimeout(e Event) {
	now := time.Now()
	w.mu.Lock()
	w.timeouts++
	w.lastTimeout = now
	w.alive = false
	w.mu.Unlock()
	w.emit(LivenessEvent{Time: now, Type: EventTimeout, Host: e.Host})
}

func (w *LivenessWatchdog) onError(e Event) {
	now := time.Now()
	w.mu.Lock()
	w.errors++
	w.lastErr = e.Err
	alive := w.alive
	w.mu.Unlock()
	w.emit(LivenessEvent{Time: now, Type: EventError, Host: e.Host, Err: e.Err, Alive: alive})
}

func (w *LivenessWatchdog) onClose(e Event) {
	now := time.Now()
	w.mu.Lock()
	w.open = false
	w.alive = false
	w.lastClosed = now
	w.mu.Unlock()
	w.emit(LivenessEvent{Time: now, Type: EventClose, Host: e.Host})
}

// Events returns a read-only channel of liveness events.
func (w *LivenessWatchdog) Events() <-chan LivenessEvent {
	return w.events
}

// Stats returns a snapshot of liveness metrics.
func (w *LivenessWatchdog) Stats() LivenessStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := LivenessStats{
		Open:        w.open,
		Alive:       w.alive,
		Replies:     w.replies,
		Timeouts:    w.timeouts,
		Errors:      w.errors,
		LastOpened:  w.lastOpened,
		LastReply:   w.lastReply,
		LastTimeout: w.lastTimeout,
		LastClosed:  w.lastClosed,
		LastErr:     w.lastErr,
	}
	if w.open && !w.alive {
		since := w.lastOpened
		if w.lastReply.After(since) {
			since = w.lastReply
		}
		stats.CurrentSilent = time.Since(since)
	}
	return stats
}

func (w *LivenessWatchdog) emit(evt LivenessEvent) {
	select {
	case w.events <- evt:
	default:
		// Drop if buffer is full to avoid blocking the dispatcher.
	}
}

var _ Plugin = (*LivenessWatchdog)(nil)
