package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/datdao1998/voicebot-demo/pkg/audio/pcm"
	"github.com/datdao1998/voicebot-demo/pkg/audio/portaudio"
	"github.com/datdao1998/voicebot-demo/pkg/audio/resampler"
	"github.com/datdao1998/voicebot-demo/pkg/voicelink"
)

// captureBuffer is the duration of each microphone read and of each paced
// file read.
const captureBuffer = 20 * time.Millisecond

// micSource opens a PortAudio input stream per recording. The run
// initializes and terminates PortAudio around it.
type micSource struct {
	device int
	format pcm.Format
}

func (s *micSource) Open(ctx context.Context) (voicelink.CaptureDevice, error) {
	stream, err := portaudio.NewInputStream(s.device, s.format, captureBuffer)
	if err != nil {
		return nil, classifyDeviceError(err)
	}
	if ctx.Err() != nil {
		stream.Close()
		return nil, ctx.Err()
	}
	return stream, nil
}

// classifyDeviceError maps host audio errors to the capture sentinels.
func classifyDeviceError(err error) error {
	switch {
	case errors.Is(err, portaudio.ErrNoDevice):
		return fmt.Errorf("%w: %v", voicelink.ErrDeviceNotFound, err)
	case strings.Contains(strings.ToLower(err.Error()), "permission"):
		return fmt.Errorf("%w: %v", voicelink.ErrPermissionDenied, err)
	}
	return err
}

// fileSource replays a WAV file as if it were spoken into the microphone.
// The audio is converted to the capture format and paced at real time; the
// end of the file ends the recording.
type fileSource struct {
	path   string
	format pcm.Format
}

func (s *fileSource) Open(ctx context.Context) (voicelink.CaptureDevice, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", voicelink.ErrDeviceNotFound, err)
		}
		return nil, err
	}
	info, samples, err := pcm.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	converted, err := resampler.Convert(samples, info, s.format.Info())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return newPacedReader(io.NopCloser(bytes.NewReader(converted)), s.format, captureBuffer), nil
}

// pacedReader yields at most one buffer of audio per buffer duration.
type pacedReader struct {
	src   io.ReadCloser
	size  int
	every time.Duration
	next  time.Time

	closed chan struct{}
	once   sync.Once
}

func newPacedReader(src io.ReadCloser, format pcm.Format, every time.Duration) *pacedReader {
	return &pacedReader{
		src:    src,
		size:   int(format.BytesInDuration(every)),
		every:  every,
		closed: make(chan struct{}),
	}
}

func (r *pacedReader) Read(p []byte) (int, error) {
	if r.next.IsZero() {
		r.next = time.Now()
	}
	if wait := time.Until(r.next); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-r.closed:
			t.Stop()
			return 0, io.EOF
		}
	}
	select {
	case <-r.closed:
		return 0, io.EOF
	default:
	}
	r.next = r.next.Add(r.every)
	return r.src.Read(p[:min(len(p), r.size)])
}

func (r *pacedReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return r.src.Close()
}

// recordingSource tees every captured byte of inner into a WAV file in dir.
type recordingSource struct {
	inner  voicelink.CaptureSource
	dir    string
	format pcm.Format
	logger voicelink.Logger
}

func (s *recordingSource) Open(ctx context.Context) (voicelink.CaptureDevice, error) {
	dev, err := s.inner.Open(ctx)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, "capture-"+fileStamp(time.Now())+".wav")
	w, err := createWAV(path, s.format)
	if err != nil {
		s.logger.WarnPrintf("capture will not be recorded: %v", err)
		return dev, nil
	}
	return &teeDevice{dev: dev, w: w, logger: s.logger}, nil
}

// teeDevice copies reads from dev into w.
type teeDevice struct {
	dev    voicelink.CaptureDevice
	w      *wavFile
	logger voicelink.Logger
	once   sync.Once
}

func (t *teeDevice) Read(p []byte) (int, error) {
	n, err := t.dev.Read(p)
	if n > 0 {
		if _, werr := t.w.Write(p[:n]); werr != nil {
			t.logger.WarnPrintf("record capture: %v", werr)
		}
	}
	return n, err
}

func (t *teeDevice) Close() error {
	err := t.dev.Close()
	t.once.Do(func() {
		if cerr := t.w.Close(); cerr != nil {
			t.logger.WarnPrintf("record capture: %v", cerr)
			return
		}
		t.logger.InfoPrintf("capture saved to %s", t.w.path)
	})
	return err
}

// paSpeaker plays through a PortAudio output device.
type paSpeaker struct {
	device int
	format pcm.Format
}

func (s *paSpeaker) Format() pcm.Format { return s.format }

func (s *paSpeaker) Open() (io.WriteCloser, error) {
	stream, err := portaudio.NewOutputStream(s.device, s.format, voicelink.DefaultPlaybackBuffer)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// fileSpeaker writes each playback to a new WAV file in dir.
type fileSpeaker struct {
	dir    string
	format pcm.Format
}

func (s *fileSpeaker) Format() pcm.Format { return s.format }

func (s *fileSpeaker) Open() (io.WriteCloser, error) {
	w, err := createWAV(filepath.Join(s.dir, "response-"+fileStamp(time.Now())+".wav"), s.format)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// wavFile is a WAV file being written.
type wavFile struct {
	path string
	f    *os.File
	ww   *pcm.WAVWriter
}

func createWAV(path string, format pcm.Format) (*wavFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	ww, err := pcm.NewWAVWriter(f, format.Info())
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return &wavFile{path: path, f: f, ww: ww}, nil
}

func (w *wavFile) Write(p []byte) (int, error) {
	return w.ww.Write(p)
}

func (w *wavFile) Close() error {
	err := w.ww.Close()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func fileStamp(t time.Time) string {
	return t.Format("20060102-150405.000")
}
