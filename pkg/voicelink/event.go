package voicelink

import (
	"sync"
	"time"
)

// Event is an input to the controller's event loop.
type Event interface {
	event()
}

// ConnectionOpened is posted when a socket finished its handshake.
type ConnectionOpened struct {
	Endpoint string
}

// FrameReceived is posted for every inbound frame.
type FrameReceived struct {
	Frame Frame
}

// ConnectionError is posted for transport errors that precede a close.
type ConnectionError struct {
	Err error
}

// ConnectionClosed is posted when a socket is gone. Code is the websocket
// close code; transport failures without a close frame report 1006.
type ConnectionClosed struct {
	Code   int
	Reason string
}

// ConnectionFailed is posted when the endpoint could not produce a socket.
// It is terminal and never followed by a reconnect.
type ConnectionFailed struct {
	Err error
}

// CaptureStarted is posted when the capture device was granted.
type CaptureStarted struct {
	Attempt uint64
}

// CaptureFailed is posted when the capture device could not be opened or
// failed while recording.
type CaptureFailed struct {
	Attempt uint64
	Err     *CaptureError
}

// ChunkCaptured carries one non-empty chunk of encoded audio.
type ChunkCaptured struct {
	Attempt uint64
	Data    []byte
}

// CaptureReleased is posted once the device of an attempt was closed and no
// further chunks will follow. Ended is set when the device ran out of audio
// on its own.
type CaptureReleased struct {
	Attempt uint64
	Ended   bool
}

// DrainElapsed is posted when the drain delay after a stop has passed.
type DrainElapsed struct {
	Attempt uint64
}

// TranscriptClear is posted when a finished transcript should leave the
// screen.
type TranscriptClear struct {
	Seq uint64
}

// PlaybackFinished is posted when a playback ended or failed.
type PlaybackFinished struct {
	SessionID string
	Err       error
}

// UserStart requests a new recording.
type UserStart struct{}

// UserStop requests the end of the current recording.
type UserStop struct{}

// UserReplay requests playback of a finalized session's response.
type UserReplay struct {
	SessionID string
}

// Tick refreshes time-dependent parts of the snapshot.
type Tick struct {
	Time time.Time
}

func (ConnectionOpened) event() {}
func (FrameReceived) event()    {}
func (ConnectionError) event()  {}
func (ConnectionClosed) event() {}
func (ConnectionFailed) event() {}
func (CaptureStarted) event()   {}
func (CaptureFailed) event()    {}
func (ChunkCaptured) event()    {}
func (CaptureReleased) event()  {}
func (DrainElapsed) event()     {}
func (TranscriptClear) event()  {}
func (PlaybackFinished) event() {}
func (UserStart) event()        {}
func (UserStop) event()         {}
func (UserReplay) event()       {}
func (Tick) event()             {}

// EventSink receives events from producers.
type EventSink func(Event)

// mailbox is an unbounded FIFO of events. Post never blocks.
type mailbox struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	closed bool
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

// Post enqueues e. It reports false once the mailbox is closed.
func (m *mailbox) Post(e Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, e)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// Ready returns a channel that receives after new events were posted.
func (m *mailbox) Ready() <-chan struct{} {
	return m.notify
}

// Drain removes and returns all queued events.
func (m *mailbox) Drain() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queue
	m.queue = nil
	return q
}

// Close discards queued events and rejects further posts.
func (m *mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue = nil
}

// ConnectionStateChanged is posted when the connection enters Connecting or
// Closing. Connected and Disconnected are implied by ConnectionOpened and
// ConnectionClosed.
type ConnectionStateChanged struct {
	State ConnectionState
}

func (ConnectionStateChanged) event() {}
