package voicelink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
	"github.com/datdao1998/voicebot-demo/pkg/audio/resampler"
)

// Speaker opens playback streams at a fixed device format.
type Speaker interface {
	Format() pcm.Format
	Open() (io.WriteCloser, error)
}

// Player plays response payloads. Play must not block.
type Player interface {
	Play(sessionID string, payload []byte, format string)
	Stop()
}

// DecodeAudio turns a payload and its format tag into PCM data.
//
// Supported tags: "wav" (any 16-bit PCM WAV), "pcm", "pcm16" and "l16" (raw
// 16-bit mono at 24 kHz), and "pcm16_16k" (raw 16-bit mono at 16 kHz). An
// empty tag is accepted for WAV payloads.
func DecodeAudio(payload []byte, format string) (pcm.Info, []byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "wav", "wave", "audio/wav", "audio/x-wav":
		return pcm.DecodeWAV(payload)
	case "pcm", "pcm16", "l16", "audio/l16":
		info := pcm.L16Mono24K.Info()
		return info, alignFrames(payload, info), nil
	case "pcm16_16k":
		info := pcm.L16Mono16K.Info()
		return info, alignFrames(payload, info), nil
	case "":
		if pcm.IsWAV(payload) {
			return pcm.DecodeWAV(payload)
		}
	}
	return pcm.Info{}, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func alignFrames(data []byte, info pcm.Info) []byte {
	return data[:len(data)/info.FrameSize()*info.FrameSize()]
}

// Playback decodes response payloads and streams them to a Speaker. At most
// one playback runs at a time; starting a new one cancels the previous one.
// Completion is reported as PlaybackFinished.
type Playback struct {
	speaker Speaker
	sink    EventSink
	logger  Logger
	metrics *Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayback creates a Playback writing to speaker.
func NewPlayback(speaker Speaker, sink EventSink, logger Logger, metrics *Metrics) *Playback {
	if logger == nil {
		logger = DefaultLogger()
	}
	if sink == nil {
		sink = func(Event) {}
	}
	return &Playback{speaker: speaker, sink: sink, logger: logger, metrics: metrics}
}

// Play starts playing payload in the background.
func (p *Playback) Play(sessionID string, payload []byte, format string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	prev := p.done
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		err := p.play(ctx, payload, format)
		switch {
		case err == nil:
			p.metrics.playback(nil)
		case errors.Is(err, context.Canceled):
			p.logger.DebugPrintf("playback of %s interrupted", sessionID)
		default:
			p.metrics.playback(err)
			p.logger.WarnPrintf("playback of %s failed: %v", sessionID, err)
		}
		p.sink(PlaybackFinished{SessionID: sessionID, Err: err})
	}()
}

func (p *Playback) play(ctx context.Context, payload []byte, format string) error {
	info, data, err := DecodeAudio(payload, format)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("voicelink: empty audio")
	}
	dst := p.speaker.Format()
	r, err := resampler.New(bytes.NewReader(data), info, dst.Info())
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := p.speaker.Open()
	if err != nil {
		return fmt.Errorf("voicelink: open speaker: %w", err)
	}
	defer out.Close()

	buf := make([]byte, dst.BytesInDuration(DefaultPlaybackBuffer))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return fmt.Errorf("voicelink: write speaker: %w", err)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// Stop cancels the current playback and waits until its resources are
// released.
func (p *Playback) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}
