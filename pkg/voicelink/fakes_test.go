package voicelink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
)

var errSocketClosed = errors.New("use of closed network connection")

type readResult struct {
	mt   int
	data []byte
	err  error
}

// fakeSocket is an in-memory Socket. Inbound messages are pushed by the
// test; outbound frames are recorded.
type fakeSocket struct {
	in     chan readResult
	closed chan struct{}
	once   sync.Once

	// readClosed ends a blocked ReadMessage. It is closed with the socket
	// unless reads are held.
	readClosed chan struct{}

	mu       sync.Mutex
	writes   []Frame
	controls [][]byte
	closes   int
}

func newFakeSocket() *fakeSocket {
	s := &fakeSocket{
		in:     make(chan readResult, 16),
		closed: make(chan struct{}),
	}
	s.readClosed = s.closed
	return s
}

// holdReads keeps ReadMessage blocked after Close until release is called.
func (s *fakeSocket) holdReads() {
	s.readClosed = make(chan struct{})
}

func (s *fakeSocket) release() {
	close(s.readClosed)
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	select {
	case r := <-s.in:
		return r.mt, r.data, r.err
	case <-s.readClosed:
		return 0, nil, errSocketClosed
	}
}

func (s *fakeSocket) WriteMessage(mt int, data []byte) error {
	select {
	case <-s.closed:
		return errSocketClosed
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := TextFrame(bytes.Clone(data))
	if mt == websocket.BinaryMessage {
		f = BinaryFrame(bytes.Clone(data))
	}
	s.writes = append(s.writes, f)
	return nil
}

func (s *fakeSocket) WriteControl(mt int, data []byte, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, bytes.Clone(data))
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.closed) })
	return nil
}

// pushText delivers a text frame from the processor.
func (s *fakeSocket) pushText(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	s.in <- readResult{mt: websocket.TextMessage, data: data}
}

// pushRaw delivers a frame of type mt.
func (s *fakeSocket) pushRaw(mt int, data []byte) {
	s.in <- readResult{mt: mt, data: data}
}

// serverClose simulates a close initiated by the peer.
func (s *fakeSocket) serverClose(code int) {
	s.in <- readResult{err: &websocket.CloseError{Code: code}}
}

func (s *fakeSocket) frames() []Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Frame(nil), s.writes...)
}

func (s *fakeSocket) closeFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.controls...)
}

// actions returns the control signals written so far.
func (s *fakeSocket) actions() []Action {
	var out []Action
	for _, f := range s.frames() {
		if f.Type != FrameText {
			continue
		}
		var sig ControlSignal
		if json.Unmarshal(f.Data, &sig) == nil {
			out = append(out, sig.Action)
		}
	}
	return out
}

func (s *fakeSocket) binaries() [][]byte {
	var out [][]byte
	for _, f := range s.frames() {
		if f.Type == FrameBinary {
			out = append(out, f.Data)
		}
	}
	return out
}

// fakeDialer hands out fakeSockets, or fails with err.
type fakeDialer struct {
	mu    sync.Mutex
	err   error
	hold  bool
	dials int
	socks []*fakeSocket
}

func (d *fakeDialer) Dial(ctx context.Context, endpoint string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	s := newFakeSocket()
	if d.hold {
		s.holdReads()
	}
	d.socks = append(d.socks, s)
	return s, nil
}

// setHold makes the next sockets hold reads after Close.
func (d *fakeDialer) setHold(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hold = on
}

func (d *fakeDialer) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) last() *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.socks) == 0 {
		return nil
	}
	return d.socks[len(d.socks)-1]
}

// recorder is an EventSink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) post(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func eventsOf[T Event](r *recorder) []T {
	var out []T
	for _, e := range r.all() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// fakeDevice is a scripted CaptureDevice.
type fakeDevice struct {
	data   chan []byte
	end    chan struct{}
	closed chan struct{}
	once   sync.Once
	failed error

	mu     sync.Mutex
	closes int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		data:   make(chan []byte, 16),
		end:    make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (d *fakeDevice) Read(p []byte) (int, error) {
	select {
	case b := <-d.data:
		return copy(p, b), nil
	case <-d.end:
		if d.failed != nil {
			return 0, d.failed
		}
		return 0, io.EOF
	case <-d.closed:
		return 0, errSocketClosed
	}
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	d.closes++
	d.mu.Unlock()
	d.once.Do(func() { close(d.closed) })
	return nil
}

func (d *fakeDevice) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *fakeDevice) push(b []byte) { d.data <- b }

// finish makes Read return err, or io.EOF when err is nil.
func (d *fakeDevice) finish(err error) {
	d.failed = err
	close(d.end)
}

// fakeSource opens fakeDevices, or fails with err.
type fakeSource struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{}
	devices []*fakeDevice
}

func (s *fakeSource) Open(ctx context.Context) (CaptureDevice, error) {
	s.mu.Lock()
	gate := s.gate
	s.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	d := newFakeDevice()
	s.devices = append(s.devices, d)
	return d, nil
}

func (s *fakeSource) opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.devices)
}

func (s *fakeSource) last() *fakeDevice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.devices) == 0 {
		return nil
	}
	return s.devices[len(s.devices)-1]
}

type played struct {
	sessionID string
	payload   []byte
	format    string
}

// fakePlayer records Play calls.
type fakePlayer struct {
	mu    sync.Mutex
	plays []played
	stops int
}

func (p *fakePlayer) Play(sessionID string, payload []byte, format string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, played{sessionID, bytes.Clone(payload), format})
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
}

func (p *fakePlayer) stopCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

func (p *fakePlayer) all() []played {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]played(nil), p.plays...)
}

// fakeSpeaker collects everything written to it.
type fakeSpeaker struct {
	format pcm.Format
	err    error

	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *fakeSpeaker) Format() pcm.Format { return s.format }

func (s *fakeSpeaker) Open() (io.WriteCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return speakerStream{s}, nil
}

func (s *fakeSpeaker) written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

type speakerStream struct {
	s *fakeSpeaker
}

func (w speakerStream) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.buf.Write(p)
}

func (speakerStream) Close() error { return nil }

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) ErrorPrintf(string, ...any) {}
func (nopLogger) WarnPrintf(string, ...any)  {}
func (nopLogger) InfoPrintf(string, ...any)  {}
func (nopLogger) DebugPrintf(string, ...any) {}
