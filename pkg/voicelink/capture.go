package voicelink

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// CaptureDevice is an open capture stream. Read blocks until encoded audio
// is available. Close must unblock a pending Read.
type CaptureDevice interface {
	io.Reader
	io.Closer
}

// CaptureSource opens capture devices. Open may block while access is being
// granted; it should return ErrPermissionDenied or ErrDeviceNotFound (or a
// *CaptureError) for the corresponding failures.
type CaptureSource interface {
	Open(ctx context.Context) (CaptureDevice, error)
}

// CaptureSourceFunc adapts a function to CaptureSource.
type CaptureSourceFunc func(ctx context.Context) (CaptureDevice, error)

// Open implements CaptureSource.
func (f CaptureSourceFunc) Open(ctx context.Context) (CaptureDevice, error) {
	return f(ctx)
}

// releaseTimeout bounds the wait for a device read to return after Close.
const releaseTimeout = time.Second

// CaptureController owns the capture device of the current attempt and
// emits its audio as chunks at a fixed cadence.
//
// Events posted per attempt, in order: CaptureStarted or CaptureFailed, then
// zero or more ChunkCaptured, then exactly one CaptureReleased once the device
// was opened. The final partial chunk is always posted before
// CaptureReleased.
type CaptureController struct {
	source   CaptureSource
	interval time.Duration
	sink     EventSink
	logger   Logger
	metrics  *Metrics

	mu     sync.Mutex
	active *captureRun
}

type captureRun struct {
	attempt uint64
	cancel  context.CancelFunc
}

// NewCaptureController creates a CaptureController.
func NewCaptureController(source CaptureSource, interval time.Duration, sink EventSink, logger Logger, metrics *Metrics) *CaptureController {
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	if logger == nil {
		logger = DefaultLogger()
	}
	if sink == nil {
		sink = func(Event) {}
	}
	return &CaptureController{
		source:   source,
		interval: interval,
		sink:     sink,
		logger:   logger,
		metrics:  metrics,
	}
}

// Active reports whether an attempt is running and not yet stopped.
func (c *CaptureController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Start requests the capture device for attempt and begins emitting chunks
// once it is granted. A running attempt is stopped first.
func (c *CaptureController) Start(attempt uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.active != nil {
		c.active.cancel()
	}
	c.active = &captureRun{attempt: attempt, cancel: cancel}
	c.mu.Unlock()

	go c.run(ctx, attempt)
}

// Stop halts chunk emission of the running attempt. The device is released
// asynchronously after the final chunk was posted. Stop reports whether an
// attempt was running; calling it again is a no-op.
func (c *CaptureController) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return false
	}
	c.active.cancel()
	c.active = nil
	return true
}

// finish clears the active run if it is still attempt.
func (c *CaptureController) finish(attempt uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.attempt == attempt {
		c.active.cancel()
		c.active = nil
	}
}

func (c *CaptureController) run(ctx context.Context, attempt uint64) {
	dev, err := c.source.Open(ctx)
	if err != nil {
		c.finish(attempt)
		if ctx.Err() != nil {
			c.logger.DebugPrintf("capture request %d abandoned: %v", attempt, err)
			return
		}
		ce := classifyCaptureError(err)
		c.metrics.captureError(ce.Kind)
		c.sink(CaptureFailed{Attempt: attempt, Err: ce})
		return
	}
	if ctx.Err() != nil {
		// Stopped while access was being granted.
		dev.Close()
		c.sink(CaptureReleased{Attempt: attempt})
		return
	}
	c.sink(CaptureStarted{Attempt: attempt})

	var (
		mu      sync.Mutex
		pending []byte
	)
	readErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := dev.Read(buf)
			if n > 0 {
				mu.Lock()
				pending = append(pending, buf[:n]...)
				mu.Unlock()
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	flush := func() {
		mu.Lock()
		data := pending
		pending = nil
		mu.Unlock()
		if len(data) == 0 {
			return
		}
		c.metrics.chunkCaptured()
		c.sink(ChunkCaptured{Attempt: attempt, Data: data})
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dev.Close()
			select {
			case <-readErr:
			case <-time.After(releaseTimeout):
				c.logger.WarnPrintf("capture device did not return after close")
			}
			flush()
			c.sink(CaptureReleased{Attempt: attempt})
			return

		case <-ticker.C:
			flush()

		case err := <-readErr:
			dev.Close()
			flush()
			c.finish(attempt)
			if errors.Is(err, io.EOF) {
				c.sink(CaptureReleased{Attempt: attempt, Ended: true})
				return
			}
			ce := classifyCaptureError(err)
			c.metrics.captureError(ce.Kind)
			c.sink(CaptureFailed{Attempt: attempt, Err: ce})
			c.sink(CaptureReleased{Attempt: attempt})
			return
		}
	}
}
