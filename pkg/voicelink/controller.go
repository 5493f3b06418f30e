package voicelink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Options are the collaborators of a Controller.
type Options struct {
	// Capture opens the microphone. Required.
	Capture CaptureSource

	// Speaker plays responses. Ignored when Player is set.
	Speaker Speaker

	// Player overrides the default Playback.
	Player Player

	// Dialer overrides the websocket dialer.
	Dialer Dialer

	// Display receives a Snapshot after every handled batch of events.
	Display Display

	Logger  Logger
	Metrics *Metrics
}

// Controller is the session aggregate. It owns the connection, the capture
// controller, the playback service and the recording state, and runs every
// transition on a single goroutine.
type Controller struct {
	cfg     Config
	logger  Logger
	debug   *DebugLog
	metrics *Metrics
	display Display

	box     *mailbox
	conn    *ConnectionManager
	capture *CaptureController
	player  Player
	router  *Router
	history History

	alive     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}

	timerMu    sync.Mutex
	drainTimer *time.Timer
	clearTimer *time.Timer

	snapMu sync.Mutex
	snap   Snapshot

	// Owned by the event loop.
	state           RecordingState
	session         *Session
	attempt         uint64
	drainElapsed    bool
	captureReleased bool
	transcript      string
	clearSeq        uint64
	lastError       string
	playing         string
}

// New creates a Controller. Call Run to connect and process events.
func New(cfg Config, opts Options) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("voicelink: config: %w", err)
	}
	if opts.Capture == nil {
		return nil, errors.New("voicelink: capture source is required")
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger()
	}

	c := &Controller{
		cfg:     cfg,
		debug:   NewDebugLog(cfg.DebugLogSize),
		metrics: opts.Metrics,
		display: opts.Display,
		box:     newMailbox(),
		done:    make(chan struct{}),
	}
	c.logger = teeLogger{Logger: opts.Logger, log: c.debug}
	sink := c.post

	dialer := opts.Dialer
	if dialer == nil {
		dialer = &WebSocketDialer{HandshakeTimeout: cfg.handshakeTimeout()}
	}
	c.conn = NewConnectionManager(ConnectionOptions{
		Endpoint:             cfg.Endpoint,
		Dialer:               dialer,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.handshakeTimeout(),
		Logger:               c.logger,
		Metrics:              c.metrics,
	}, sink)
	c.capture = NewCaptureController(opts.Capture, cfg.ChunkInterval, sink, c.logger, c.metrics)
	c.router = NewRouter(c.logger, c.metrics)

	switch {
	case opts.Player != nil:
		c.player = opts.Player
	case opts.Speaker != nil:
		c.player = NewPlayback(opts.Speaker, sink, c.logger, c.metrics)
	default:
		c.player = mutePlayer{logger: c.logger, sink: sink}
	}

	c.alive.Store(true)
	c.metrics.recordingState(Idle)
	c.snap = c.snapshot()
	return c, nil
}

// Start requests a new recording.
func (c *Controller) Start() { c.post(UserStart{}) }

// Stop ends the current recording.
func (c *Controller) Stop() { c.post(UserStop{}) }

// Replay plays the response of a finalized session again.
func (c *Controller) Replay(sessionID string) { c.post(UserReplay{SessionID: sessionID}) }

// Toggle starts a recording when idle and stops it while recording.
func (c *Controller) Toggle() {
	if c.Snapshot().CanStop() {
		c.Stop()
		return
	}
	c.Start()
}

// Snapshot returns the most recently published snapshot.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	return c.snap
}

// History returns copies of the finalized sessions.
func (c *Controller) History() []Session {
	return c.history.List()
}

// Session returns a finalized session by id.
func (c *Controller) Session(id string) (*Session, bool) {
	s, ok := c.history.Get(id)
	return s.Clone(), ok
}

// DebugLog returns the controller's debug log.
func (c *Controller) DebugLog() *DebugLog {
	return c.debug
}

// Done is closed when the controller was torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) post(e Event) {
	if c.alive.Load() {
		c.box.Post(e)
	}
}

// Run connects and processes events until ctx is canceled or Close is
// called. It tears the controller down before returning.
func (c *Controller) Run(ctx context.Context) error {
	if !c.alive.Load() {
		return ErrClosed
	}
	defer c.Close()

	c.conn.Connect()
	c.publish()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.box.Ready():
			for _, e := range c.box.Drain() {
				if !c.alive.Load() {
					return nil
				}
				c.handle(e)
			}
			c.publish()
		case t := <-ticker.C:
			c.handle(Tick{Time: t})
			c.publish()
		}
	}
}

// Close tears the controller down: every timer is canceled, capture and
// playback are stopped, and the connection is closed with a normal close.
// Events arriving afterwards are discarded. Close is idempotent.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		c.box.Close()

		c.timerMu.Lock()
		stopTimer(&c.drainTimer)
		stopTimer(&c.clearTimer)
		c.timerMu.Unlock()

		c.capture.Stop()
		c.player.Stop()
		c.conn.Shutdown()
		close(c.done)
	})
	return nil
}

func (c *Controller) handle(e Event) {
	switch e := e.(type) {
	case ConnectionStateChanged, ConnectionError, Tick:
		// Reflected in the next snapshot.
	case ConnectionOpened:
		c.lastError = ""
	case ConnectionFailed:
		c.lastError = "Connection failed"
		c.abort(InputDisconnect, "Connection failed")
	case ConnectionClosed:
		c.onClosed(e)
	case FrameReceived:
		c.router.Route(e.Frame, c.state, routeHandler{c})
	case CaptureStarted:
		c.onCaptureStarted(e)
	case CaptureFailed:
		c.onCaptureFailed(e)
	case ChunkCaptured:
		c.onChunk(e)
	case CaptureReleased:
		c.onCaptureReleased(e)
	case DrainElapsed:
		if e.Attempt != c.attempt || c.state != Draining {
			return
		}
		c.drainElapsed = true
		c.finishDrain()
	case TranscriptClear:
		if e.Seq == c.clearSeq && c.state == Idle {
			c.transcript = ""
		}
	case PlaybackFinished:
		if c.playing == e.SessionID {
			c.playing = ""
		}
	case UserStart:
		c.onStart()
	case UserStop:
		c.onStop()
	case UserReplay:
		c.onReplay(e.SessionID)
	}
}

func (c *Controller) transition(in Input) bool {
	next, ok := Next(c.state, in)
	if !ok {
		c.logger.DebugPrintf("%s ignored in state %s", in, c.state)
		return false
	}
	if next != c.state {
		c.logger.DebugPrintf("state %s -> %s (%s)", c.state, next, in)
		c.state = next
		c.metrics.recordingState(next)
	}
	return true
}

func (c *Controller) onStart() {
	if !c.state.CanStart() {
		c.logger.WarnPrintf("start rejected: %s in progress", c.state)
		return
	}
	if st := c.conn.State(); st != Connected {
		c.logger.WarnPrintf("start rejected: %v (%s), connecting", ErrNotConnected, st)
		c.lastError = "Not connected"
		c.conn.Connect()
		return
	}
	c.transition(InputStart)
	c.attempt++
	c.drainElapsed = false
	c.captureReleased = false
	c.transcript = ""
	c.lastError = ""
	c.capture.Start(c.attempt)
	c.logger.InfoPrintf("requesting microphone")
}

func (c *Controller) onCaptureStarted(e CaptureStarted) {
	if e.Attempt != c.attempt || c.state != Requesting {
		return
	}
	c.transition(InputCaptureGranted)
	c.session = newSession(time.Now())
	c.conn.Send(ControlFrame(ActionStartRecording))
	c.logger.InfoPrintf("recording started")
}

func (c *Controller) onCaptureFailed(e CaptureFailed) {
	if e.Attempt != c.attempt {
		return
	}
	reason := e.Err.Kind.Reason()
	switch c.state {
	case Requesting:
		c.logger.ErrorPrintf("microphone: %v", e.Err)
		c.transition(InputCaptureFailed)
		c.lastError = reason
	case Recording:
		c.logger.ErrorPrintf("microphone failed while recording: %v", e.Err)
		c.abort(InputCaptureFailed, reason)
	default:
		c.logger.DebugPrintf("capture error in state %s: %v", c.state, e.Err)
	}
}

func (c *Controller) onChunk(e ChunkCaptured) {
	if e.Attempt != c.attempt || c.session == nil || !c.state.CanSendAudio() {
		c.logger.DebugPrintf("chunk (%d bytes) dropped in state %s", len(e.Data), c.state)
		return
	}
	c.session.ChunksCaptured++
	if c.conn.State() == Connected && c.conn.Send(BinaryFrame(e.Data)) {
		c.session.ChunksSent++
		c.session.BytesSent += int64(len(e.Data))
		return
	}
	c.session.ChunksDropped++
	c.logger.WarnPrintf("chunk (%d bytes) dropped: %v", len(e.Data), ErrNotConnected)
}

func (c *Controller) onStop() {
	if c.state != Recording {
		c.logger.WarnPrintf("stop rejected in state %s", c.state)
		return
	}
	c.capture.Stop()
	c.transition(InputStop)
	c.startDrain()
}

func (c *Controller) onCaptureReleased(e CaptureReleased) {
	if e.Attempt != c.attempt {
		return
	}
	c.captureReleased = true
	switch c.state {
	case Recording:
		if e.Ended {
			c.logger.InfoPrintf("input ended")
			c.transition(InputStop)
			c.startDrain()
		}
	case Draining:
		c.finishDrain()
	}
}

func (c *Controller) startDrain() {
	attempt := c.attempt
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	stopTimer(&c.drainTimer)
	c.drainTimer = time.AfterFunc(c.cfg.drainDelay(), func() {
		c.post(DrainElapsed{Attempt: attempt})
	})
}

// finishDrain sends the stop signal once the drain delay elapsed and the
// capture device reported that no further chunks will follow.
func (c *Controller) finishDrain() {
	if c.state != Draining || !c.drainElapsed || !c.captureReleased {
		return
	}
	c.transition(InputDrained)
	c.conn.Send(ControlFrame(ActionStopRecording))
	if s := c.session; s != nil {
		c.logger.InfoPrintf("recording stopped: %d chunks sent, %d dropped", s.ChunksSent, s.ChunksDropped)
	}
}

func (c *Controller) onClosed(e ConnectionClosed) {
	if c.state == Idle {
		return
	}
	reason := "Connection lost"
	if e.Code == CloseNormal {
		reason = "Connection closed"
	}
	c.abort(InputDisconnect, reason)
}

// abort discards the in-flight session and returns to Idle, stopping the
// capture device if it is still held.
func (c *Controller) abort(in Input, reason string) {
	if c.state == Idle {
		return
	}
	if c.capture.Stop() {
		c.logger.InfoPrintf("microphone released")
	}
	c.timerMu.Lock()
	stopTimer(&c.drainTimer)
	c.timerMu.Unlock()

	if s := c.session; s != nil {
		c.metrics.sessionEnded("discarded", 0)
		c.logger.WarnPrintf("session %s discarded: %s", s.ID, reason)
		c.session = nil
	}
	c.transition(in)
	c.lastError = reason
}

func (c *Controller) onTranscript(text string) {
	if c.session == nil {
		c.logger.DebugPrintf("transcript ignored in state %s", c.state)
		return
	}
	c.session.Transcript = text
	c.transcript = text
	c.logger.InfoPrintf("transcript: %s", truncate(text, 80))
}

func (c *Controller) onAudio(payload []byte, format string) {
	if c.session == nil {
		c.logger.DebugPrintf("audio ignored in state %s", c.state)
		return
	}
	c.session.Response = payload
	c.session.ResponseFormat = format
	c.logger.InfoPrintf("audio response: %d bytes (%s)", len(payload), format)
	c.playing = c.session.ID
	c.player.Play(c.session.ID, payload, format)
}

func (c *Controller) onComplete() {
	if c.state != Processing {
		c.logger.DebugPrintf("complete ignored in state %s", c.state)
		return
	}
	s := c.session
	c.session = nil
	c.transition(InputComplete)
	if s == nil {
		return
	}
	s.CompletedAt = time.Now()
	if s.Transcript == "" {
		c.metrics.sessionEnded("dropped", 0)
		c.logger.WarnPrintf("session %s dropped: completed without transcript", s.ID)
		c.lastError = "No speech recognized"
	} else {
		c.history.Append(s)
		c.metrics.sessionEnded("completed", s.Duration().Seconds())
		c.logger.InfoPrintf("session complete (%d in history)", c.history.Len())
	}
	c.scheduleTranscriptClear()
}

func (c *Controller) scheduleTranscriptClear() {
	if c.cfg.TranscriptClearDelay <= 0 {
		return
	}
	c.clearSeq++
	seq := c.clearSeq
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	stopTimer(&c.clearTimer)
	c.clearTimer = time.AfterFunc(c.cfg.TranscriptClearDelay, func() {
		c.post(TranscriptClear{Seq: seq})
	})
}

func (c *Controller) onRemoteError(message string) {
	c.logger.ErrorPrintf("processor error: %s", message)
	if !c.state.InFlight() {
		c.lastError = "Error: " + message
		return
	}
	c.abort(InputRemoteError, "Error: "+message)
}

func (c *Controller) onReplay(id string) {
	s, ok := c.history.Get(id)
	if !ok {
		c.logger.WarnPrintf("replay: %v: %s", ErrSessionNotFound, id)
		return
	}
	if !s.HasResponse() {
		c.logger.WarnPrintf("replay: session %s has no audio", id)
		return
	}
	c.logger.InfoPrintf("replaying %s", id)
	c.playing = id
	c.player.Play(id, s.Response, s.ResponseFormat)
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Endpoint:         c.conn.Endpoint(),
		Connection:       c.conn.State(),
		ReconnectPending: c.conn.PendingReconnect(),
		Recording:        c.state,
		Current:          c.session.Clone(),
		Transcript:       c.transcript,
		Playing:          c.playing,
		LastError:        c.lastError,
		History:          c.history.List(),
		DebugLog:         c.debug.Entries(),
	}
}

func (c *Controller) publish() {
	snap := c.snapshot()
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
	if c.display != nil {
		c.display.Render(snap)
	}
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// routeHandler adapts the controller to the Router's Handler.
type routeHandler struct {
	c *Controller
}

func (h routeHandler) OnTranscript(text string)              { h.c.onTranscript(text) }
func (h routeHandler) OnAudio(payload []byte, format string) { h.c.onAudio(payload, format) }
func (h routeHandler) OnComplete()                           { h.c.onComplete() }
func (h routeHandler) OnRemoteError(message string)          { h.c.onRemoteError(message) }

// mutePlayer is used when no speaker is configured.
type mutePlayer struct {
	logger Logger
	sink   EventSink
}

func (p mutePlayer) Play(sessionID string, payload []byte, format string) {
	p.logger.DebugPrintf("no speaker: %d bytes of %s audio not played", len(payload), format)
	p.sink(PlaybackFinished{SessionID: sessionID})
}

func (mutePlayer) Stop() {}
