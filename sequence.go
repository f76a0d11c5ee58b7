package fins

import "sync"

// Width is the element width a request's reply will carry.
type Width uint8

const (
	WidthUnknown Width = iota
	WidthWord
	WidthBit
)

func (w Width) String() string {
	switch w {
	case WidthWord:
		return "word"
	case WidthBit:
		return "bit"
	}
	return "unknown"
}

// SequenceTracker owns the cycling service ID and remembers, per in-flight
// SID, whether the request was bit- or word-typed. It is safe for
// concurrent use.
type SequenceTracker struct {
	mu     sync.Mutex
	sid    byte
	widths [MAX_SID + 1]Width
}

// NewSequenceTracker starts the cycle after start; the first Next returns
// (start % 254) + 1.
func NewSequenceTracker(start byte) *SequenceTracker {
	return &SequenceTracker{sid: start}
}

func nextSID(sid byte) byte {
	return byte(int(sid)%MAX_SID + 1)
}

// Next advances the SID and returns it. Any width still recorded for the
// new SID is from the previous cycle and is discarded.
func (t *SequenceTracker) Next() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sid = nextSID(t.sid)
	t.widths[t.sid] = WidthUnknown
	return t.sid
}

// Current returns the last SID handed out.
func (t *SequenceTracker) Current() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sid
}

// Record stores the width of the request sent with sid.
func (t *SequenceTracker) Record(sid byte, w Width) {
	if sid == 0 || int(sid) > MAX_SID {
		return
	}
	t.mu.Lock()
	t.widths[sid] = w
	t.mu.Unlock()
}

// Consume returns the width recorded for sid and clears it, so a second
// reply echoing the same SID sees WidthUnknown.
func (t *SequenceTracker) Consume(sid byte) Width {
	if sid == 0 || int(sid) > MAX_SID {
		return WidthUnknown
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.widths[sid]
	t.widths[sid] = WidthUnknown
	return w
}
