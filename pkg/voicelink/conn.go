package voicelink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes used on the connection.
const (
	CloseNormal   = websocket.CloseNormalClosure
	CloseAbnormal = websocket.CloseAbnormalClosure
)

// ConnectionOptions configures a ConnectionManager.
type ConnectionOptions struct {
	Endpoint             string
	Dialer               Dialer
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
	Logger               Logger
	Metrics              *Metrics
}

// ConnectionManager owns the duplex socket to the processor and its
// reconnect policy. Lifecycle events are delivered to an EventSink.
//
// At most one reconnect timer is pending at any time. Sockets are numbered;
// events of a socket that was replaced or abandoned are dropped.
type ConnectionManager struct {
	endpoint         string
	dialer           Dialer
	sink             EventSink
	logger           Logger
	metrics          *Metrics
	reconnectDelay   time.Duration
	maxAttempts      int
	handshakeTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	alive         bool
	state         ConnectionState
	sock          Socket
	gen           uint64
	autoReconnect bool
	attempts      int
	timer         *time.Timer
	timerSeq      uint64
	localCode     int
	localReason   string

	writeMu sync.Mutex
}

// NewConnectionManager creates a ConnectionManager in the Disconnected state.
// sink must not block.
func NewConnectionManager(opts ConnectionOptions, sink EventSink) *ConnectionManager {
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}
	if opts.Dialer == nil {
		opts.Dialer = &WebSocketDialer{}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if sink == nil {
		sink = func(Event) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &ConnectionManager{
		endpoint:         opts.Endpoint,
		dialer:           opts.Dialer,
		sink:             sink,
		logger:           opts.Logger,
		metrics:          opts.Metrics,
		reconnectDelay:   opts.ReconnectDelay,
		maxAttempts:      opts.MaxReconnectAttempts,
		handshakeTimeout: opts.HandshakeTimeout,
		ctx:              ctx,
		cancel:           cancel,
		alive:            true,
		autoReconnect:    true,
	}
	m.metrics.connectionState(Disconnected)
	return m
}

// Endpoint returns the endpoint URL.
func (m *ConnectionManager) Endpoint() string {
	return m.endpoint
}

// State returns the current connection state.
func (m *ConnectionManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PendingReconnect reports whether a reconnect timer is pending.
func (m *ConnectionManager) PendingReconnect() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

// SetAutoReconnect enables or suppresses automatic reconnection. Suppressing
// cancels a pending reconnect timer.
func (m *ConnectionManager) SetAutoReconnect(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = on
	if !on {
		m.stopTimerLocked()
	}
}

// Connect opens a socket to the endpoint. It is a no-op while a socket is
// open or being opened, and after Shutdown. Called while a deliberate close
// is in progress, it reports that close before dialing.
func (m *ConnectionManager) Connect() {
	m.mu.Lock()
	if !m.alive || m.state == Connecting || m.state == Connected {
		m.mu.Unlock()
		return
	}
	if err := validateEndpoint(m.endpoint); err != nil {
		m.setStateLocked(Disconnected)
		m.mu.Unlock()
		m.logger.ErrorPrintf("cannot connect to %q: %v", m.endpoint, err)
		m.emit(ConnectionFailed{Err: err})
		return
	}
	m.stopTimerLocked()
	// A deliberate close still in progress is finished here: once gen moves
	// on, its read loop report is dropped.
	var finished *ConnectionClosed
	if m.state == Closing {
		finished = &ConnectionClosed{Code: m.localCode, Reason: m.localReason}
	}
	m.localCode, m.localReason = 0, ""
	if m.sock != nil {
		m.sock.Close()
		m.sock = nil
	}
	m.gen++
	gen := m.gen
	m.setStateLocked(Connecting)
	m.mu.Unlock()

	if finished != nil {
		m.emit(*finished)
	}
	m.logger.InfoPrintf("connecting to %s", m.endpoint)
	m.emit(ConnectionStateChanged{State: Connecting})
	go m.dial(gen)
}

func (m *ConnectionManager) dial(gen uint64) {
	ctx, cancel := context.WithTimeout(m.ctx, m.handshakeTimeout)
	defer cancel()

	sock, err := m.dialer.Dial(ctx, m.endpoint)

	m.mu.Lock()
	if !m.alive || gen != m.gen {
		m.mu.Unlock()
		if sock != nil {
			sock.Close()
		}
		return
	}
	if err != nil {
		m.mu.Unlock()
		m.logger.WarnPrintf("connection error: %v", err)
		m.emit(ConnectionError{Err: err})
		m.closed(gen, CloseAbnormal, err.Error())
		return
	}
	m.sock = sock
	m.attempts = 0
	m.setStateLocked(Connected)
	m.mu.Unlock()

	m.logger.InfoPrintf("connected to %s", m.endpoint)
	m.emit(ConnectionOpened{Endpoint: m.endpoint})
	go m.readLoop(gen, sock)
}

func (m *ConnectionManager) readLoop(gen uint64, sock Socket) {
	for {
		mt, data, err := sock.ReadMessage()
		if err != nil {
			code, reason := closeStatus(err)
			m.closed(gen, code, reason)
			return
		}
		if !m.current(gen) {
			return
		}
		switch mt {
		case websocket.TextMessage:
			m.emit(FrameReceived{Frame: TextFrame(data)})
		case websocket.BinaryMessage:
			m.emit(FrameReceived{Frame: BinaryFrame(data)})
		}
	}
}

// closed finishes the socket of gen and applies the reconnect policy.
func (m *ConnectionManager) closed(gen uint64, code int, reason string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	deliberate := m.localCode != 0
	if deliberate {
		code, reason = m.localCode, m.localReason
		m.localCode, m.localReason = 0, ""
	}
	if m.sock != nil {
		m.sock.Close()
		m.sock = nil
	}
	m.setStateLocked(Disconnected)
	alive := m.alive
	scheduled := false
	if alive && !deliberate && code != CloseNormal && m.autoReconnect {
		scheduled = m.scheduleReconnectLocked()
	}
	m.mu.Unlock()

	if !alive {
		return
	}
	if scheduled {
		m.logger.InfoPrintf("disconnected (code %d), reconnecting in %s", code, m.reconnectDelay)
	} else {
		m.logger.InfoPrintf("disconnected (code %d)", code)
	}
	m.emit(ConnectionClosed{Code: code, Reason: reason})
}

// scheduleReconnectLocked replaces any pending timer with a new one.
func (m *ConnectionManager) scheduleReconnectLocked() bool {
	if m.maxAttempts > 0 && m.attempts >= m.maxAttempts {
		m.logger.WarnPrintf("giving up after %d reconnect attempts", m.attempts)
		return false
	}
	m.stopTimerLocked()
	m.attempts++
	m.timerSeq++
	seq := m.timerSeq
	m.timer = time.AfterFunc(m.reconnectDelay, func() {
		m.reconnect(seq)
	})
	m.metrics.reconnectScheduled()
	return true
}

func (m *ConnectionManager) reconnect(seq uint64) {
	m.mu.Lock()
	if !m.alive || m.timer == nil || seq != m.timerSeq {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()
	m.Connect()
}

func (m *ConnectionManager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// Send writes f to the socket. It reports false, after logging, when the
// socket is not open or the write failed.
func (m *ConnectionManager) Send(f Frame) bool {
	m.mu.Lock()
	sock, state := m.sock, m.state
	m.mu.Unlock()

	if state != Connected || sock == nil {
		m.logger.DebugPrintf("%s frame (%d bytes) not sent: %s", f.Type, len(f.Data), state)
		m.metrics.frameDropped("not_connected")
		return false
	}

	mt := websocket.TextMessage
	if f.Type == FrameBinary {
		mt = websocket.BinaryMessage
	}

	m.writeMu.Lock()
	err := sock.WriteMessage(mt, f.Data)
	m.writeMu.Unlock()
	if err != nil {
		m.logger.WarnPrintf("send %s frame: %v", f.Type, err)
		m.metrics.frameDropped("write_error")
		return false
	}
	m.metrics.frameSent(f.Type.String(), len(f.Data))
	return true
}

// Close closes the current socket with code. A deliberate close never
// triggers a reconnect, whatever the code.
func (m *ConnectionManager) Close(code int, reason string) {
	m.mu.Lock()
	switch m.state {
	case Connecting:
		// Abandon the dial in flight.
		m.gen++
		m.setStateLocked(Disconnected)
		m.mu.Unlock()
		m.emit(ConnectionClosed{Code: code, Reason: reason})
		return
	case Connected:
	default:
		m.mu.Unlock()
		return
	}
	sock := m.sock
	m.localCode, m.localReason = code, reason
	m.setStateLocked(Closing)
	m.mu.Unlock()

	m.emit(ConnectionStateChanged{State: Closing})
	m.writeClose(sock, code, reason)
	sock.Close()
}

func (m *ConnectionManager) writeClose(sock Socket, code int, reason string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(code, reason)
	if err := sock.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		m.logger.DebugPrintf("write close frame: %v", err)
	}
}

// Shutdown tears the manager down. It cancels the pending reconnect timer,
// aborts a dial in flight and closes the socket with a normal close. No
// events are delivered afterwards. Shutdown is idempotent.
func (m *ConnectionManager) Shutdown() {
	m.mu.Lock()
	if !m.alive {
		m.mu.Unlock()
		return
	}
	m.alive = false
	m.stopTimerLocked()
	m.gen++
	sock := m.sock
	m.sock = nil
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	m.cancel()
	if sock != nil {
		m.writeClose(sock, CloseNormal, "session closed")
		sock.Close()
	}
}

func (m *ConnectionManager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive && gen == m.gen
}

func (m *ConnectionManager) emit(e Event) {
	m.mu.Lock()
	alive := m.alive
	m.mu.Unlock()
	if alive {
		m.sink(e)
	}
}

func (m *ConnectionManager) setStateLocked(s ConnectionState) {
	m.state = s
	m.metrics.connectionState(s)
}

// closeStatus extracts the close code of a read error. Errors without a
// close frame are abnormal closures.
func closeStatus(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return CloseAbnormal, err.Error()
}
